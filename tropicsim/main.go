// Command tropicsim runs the in-memory device simulator behind a Handle
// and walks through a representative session so the driver can be
// exercised end to end without hardware: pairing-key provisioning,
// session_start, a handful of façade commands, and a clean
// session_abort.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/quaylabs/tropicdrv/internal/simulator"
	"github.com/quaylabs/tropicdrv/pkg/tropic"
)

func main() {
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

	fmt.Println("=== Simulated Device Session ===")
	fmt.Println()

	crypto := tropic.DefaultCrypto{}
	var stPriv [32]byte
	if err := crypto.RandomBytes(stPriv[:]); err != nil {
		fatalf("generate device static key: %v", err)
	}
	stPub, err := crypto.X25519Base(stPriv)
	if err != nil {
		fatalf("derive device static public key: %v", err)
	}

	var shiPriv [32]byte
	if err := crypto.RandomBytes(shiPriv[:]); err != nil {
		fatalf("generate host pairing key: %v", err)
	}
	shiPub, err := crypto.X25519Base(shiPriv)
	if err != nil {
		fatalf("derive host pairing public key: %v", err)
	}

	sim := simulator.New(stPriv, stPub)
	sim.ProvisionPairingKey(tropic.PairingKeySlot0, shiPub)
	fmt.Printf("Device static public key: %x\n", sim.StaticPublicKey())

	h := tropic.NewHandle(sim)
	if err := h.Init(); err != nil {
		fatalf("init driver: %v", err)
	}
	defer h.Deinit()

	mode, err := h.Mode()
	if err != nil {
		fatalf("get_tr01_mode: %v", err)
	}
	fmt.Printf("Device mode: %v\n", mode)

	if err := h.SessionStart(sim.StaticPublicKey(), tropic.PairingKeySlot0, shiPriv, shiPub); err != nil {
		fatalf("session_start: %v", err)
	}
	fmt.Println("Session established.")

	echo, err := h.Ping([]byte("tropicsim"))
	if err != nil {
		fatalf("ping: %v", err)
	}
	fmt.Printf("Ping echo: %q\n", echo)

	rnd, err := h.RandomValueGet(16)
	if err != nil {
		fatalf("random_value_get: %v", err)
	}
	fmt.Printf("Random bytes: %x\n", rnd)

	if err := h.EccKeyGenerate(0, tropic.EccCurveEd25519); err != nil {
		fatalf("ecc_key_generate: %v", err)
	}
	_, pub, err := h.EccKeyRead(0)
	if err != nil {
		fatalf("ecc_key_read: %v", err)
	}
	fmt.Printf("Generated Ed25519 key (slot 0): %x\n", pub)

	sig, err := h.EddsaSign(0, []byte("hello simulated device"))
	if err != nil {
		fatalf("eddsa_sign: %v", err)
	}
	fmt.Printf("Signature: %x\n", sig)

	if err := h.McounterInit(0, 3); err != nil {
		fatalf("mcounter_init: %v", err)
	}
	if err := h.McounterUpdate(0); err != nil {
		fatalf("mcounter_update: %v", err)
	}
	count, err := h.McounterGet(0)
	if err != nil {
		fatalf("mcounter_get: %v", err)
	}
	fmt.Printf("Monotonic counter 0: %d\n", count)

	if err := h.SessionAbort(); err != nil {
		fatalf("session_abort: %v", err)
	}
	fmt.Println()
	fmt.Println("SUCCESS: session closed cleanly")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
