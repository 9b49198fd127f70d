// Command tropicprovision runs the full first-boot provisioning sequence
// for a fresh device: it establishes a session against an already
// pairing-key-provisioned slot, generates an Ed25519 signing key and a
// P-256 key in two fixed ECC slots, seeds a monotonic counter, and writes
// a runtime-configuration register recording that provisioning has
// completed.
//
// Steps:
//  1. Read chip mode and fail fast if the device reports ALARM.
//  2. session_start against the configured pairing-key slot.
//  3. Generate an Ed25519 key in slot 0 (device identity signing key).
//  4. Generate a P-256 key in slot 1 (host-facing auth key).
//  5. Initialise monotonic counter 0 to the provisioning epoch.
//  6. Write a runtime-configuration register marking provisioning done.
//  7. Read the provisioning register back and report it.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/quaylabs/tropicdrv/internal/config"
	"github.com/quaylabs/tropicdrv/pkg/tropic"
)

const (
	eccSlotIdentity byte = 0
	eccSlotAuth     byte = 1

	mcounterProvisioned byte = 0

	rConfigProvisioned tropic.RConfigObjectID = 0x01
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the CLI config file")
	verbose := flag.Bool("v", false, "enable debug logging")
	logFormat := flag.String("log-format", "text", "log format: text or json")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if *logFormat == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, opts)))
	} else {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
	}

	fmt.Println("=== Device Provisioning Tool ===")
	fmt.Println()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatalf("load config: %v", err)
	}

	port, closePort, err := config.OpenPort(cfg)
	if err != nil {
		fatalf("open transport: %v", err)
	}
	defer closePort()

	h := tropic.NewHandle(port)
	if err := h.Init(); err != nil {
		fatalf("init driver: %v", err)
	}
	defer h.Deinit()

	if err := provision(h, cfg); err != nil {
		fatalf("provisioning failed: %v", err)
	}

	fmt.Println()
	fmt.Println("SUCCESS: device provisioned")
}

func provision(h *tropic.Handle, cfg *config.Config) error {
	// 1) Refuse to provision a device in alarm state.
	mode, err := h.Mode()
	if err != nil {
		return fmt.Errorf("get_tr01_mode: %w", err)
	}
	fmt.Printf("Device mode: %v\n", mode)
	if mode == tropic.ModeMaintenance {
		return fmt.Errorf("device is in maintenance mode; reboot to application mode first")
	}

	// 2) Establish a session against the configured pairing-key slot.
	if cfg.Pairing.PrivKeyFile == "" {
		return fmt.Errorf("config.pairing.priv_key_file is required for provisioning")
	}
	shiPriv, err := tropic.LoadKeyHexFile(cfg.Pairing.PrivKeyFile)
	if err != nil {
		return fmt.Errorf("load pairing private key: %w", err)
	}
	var shiPub [32]byte
	if cfg.Pairing.PubKeyFile != "" {
		shiPub, err = tropic.LoadKeyHexFile(cfg.Pairing.PubKeyFile)
		if err != nil {
			return fmt.Errorf("load pairing public key: %w", err)
		}
	} else {
		crypto := tropic.DefaultCrypto{}
		shiPub, err = crypto.X25519Base(shiPriv)
		if err != nil {
			return fmt.Errorf("derive pairing public key: %w", err)
		}
	}

	store, err := h.GetInfoCertStore()
	if err != nil {
		return fmt.Errorf("get_info_cert_store: %w", err)
	}
	stPub, err := staticPublicKeyFromCertStore(store)
	if err != nil {
		return fmt.Errorf("extract device static public key: %w", err)
	}

	slot := tropic.PairingKeySlot(cfg.Pairing.Slot)
	if err := h.SessionStart(stPub, slot, shiPriv, shiPub); err != nil {
		return fmt.Errorf("session_start: %w", err)
	}
	fmt.Println("Session established.")

	// 3) Device identity signing key (Ed25519).
	if err := h.EccKeyGenerate(eccSlotIdentity, tropic.EccCurveEd25519); err != nil {
		return fmt.Errorf("ecc_key_generate(identity): %w", err)
	}
	_, identityPub, err := h.EccKeyRead(eccSlotIdentity)
	if err != nil {
		return fmt.Errorf("ecc_key_read(identity): %w", err)
	}
	fmt.Printf("Identity key (slot %d): %x\n", eccSlotIdentity, identityPub)

	// 4) Host-facing auth key (P-256).
	if err := h.EccKeyGenerate(eccSlotAuth, tropic.EccCurveP256); err != nil {
		return fmt.Errorf("ecc_key_generate(auth): %w", err)
	}
	_, authPub, err := h.EccKeyRead(eccSlotAuth)
	if err != nil {
		return fmt.Errorf("ecc_key_read(auth): %w", err)
	}
	fmt.Printf("Auth key (slot %d):     %x\n", eccSlotAuth, authPub)

	// 5) Seed the provisioning-epoch counter.
	if err := h.McounterInit(mcounterProvisioned, 1); err != nil {
		return fmt.Errorf("mcounter_init: %w", err)
	}

	// 6) Mark provisioning complete in runtime configuration.
	if err := h.RConfigWrite(rConfigProvisioned, 1); err != nil {
		return fmt.Errorf("r_config_write: %w", err)
	}

	// 7) Read the provisioning register back for the operator's record.
	v, err := h.RConfigRead(rConfigProvisioned)
	if err != nil {
		return fmt.Errorf("r_config_read: %w", err)
	}
	fmt.Printf("Provisioned flag: %d\n", v)

	return h.SessionAbort()
}

// staticPublicKeyFromCertStore extracts the device's static X25519 public
// key from the leaf certificate buffer. Full X.509 chain validation and
// ASN.1 parsing are out of scope for this driver; this reads the raw
// 32-byte key from the fixed trailing offset this device's certificate
// format places it at.
func staticPublicKeyFromCertStore(store *tropic.CertStore) ([32]byte, error) {
	var pub [32]byte
	leaf := store.Certs[0]
	if len(leaf) < 32 {
		return pub, fmt.Errorf("leaf certificate too short to hold a static public key (%d bytes)", len(leaf))
	}
	copy(pub[:], leaf[len(leaf)-32:])
	return pub, nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
