// Command tropicpair provisions a pairing-key slot on the device: it
// generates a fresh X25519 host keypair, lets the operator pick which of
// the four pairing-key slots to install it into, writes the public half
// to the device, and saves both halves to disk for session_start to use
// later.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/quaylabs/tropicdrv/internal/config"
	"github.com/quaylabs/tropicdrv/pkg/tropic"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the CLI config file")
	privOut := flag.String("priv-out", "pairing.priv.hex", "where to write the new private key")
	pubOut := flag.String("pub-out", "pairing.pub.hex", "where to write the new public key")
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

	fmt.Println("=== Pairing Key Provisioning Tool ===")
	fmt.Println()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	port, closePort, err := config.OpenPort(cfg)
	if err != nil {
		fmt.Printf("Error opening transport: %v\n", err)
		os.Exit(1)
	}
	defer closePort()

	h := tropic.NewHandle(port)
	if err := h.Init(); err != nil {
		fmt.Printf("Error initialising driver: %v\n", err)
		os.Exit(1)
	}
	defer h.Deinit()

	mode, err := h.Mode()
	if err != nil {
		fmt.Printf("Error reading chip mode: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Device mode: %v\n", mode)

	fmt.Println("Probing pairing-key slots...")
	slotItems := make([]string, 4)
	for slot := tropic.PairingKeySlot0; slot <= tropic.PairingKeySlot3; slot++ {
		status := "empty"
		if _, err := h.PairingKeyRead(slot); err == nil {
			status = "provisioned"
		}
		slotItems[slot] = fmt.Sprintf("slot %d [%s]", slot, status)
	}

	selected := selectMenu("Select slot to provision:", slotItems)
	if selected < 0 {
		fmt.Println("Invalid selection.")
		os.Exit(1)
	}
	slot := tropic.PairingKeySlot(selected)

	slog.Debug("generating host pairing keypair")
	crypto := tropic.DefaultCrypto{}
	var priv [32]byte
	if err := crypto.RandomBytes(priv[:]); err != nil {
		fmt.Printf("Error generating key: %v\n", err)
		os.Exit(1)
	}
	pub, err := crypto.X25519Base(priv)
	if err != nil {
		fmt.Printf("Error deriving public key: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Printf("Write new key to slot %d? (y/n): ", slot)
	if !confirm() {
		fmt.Println("Cancelled.")
		os.Exit(0)
	}

	if err := h.PairingKeyWrite(slot, pub); err != nil {
		fmt.Printf("pairing_key_write failed: %v\n", err)
		os.Exit(1)
	}

	if err := tropic.WriteKeyHexFile(*privOut, priv); err != nil {
		fmt.Printf("Error saving private key: %v\n", err)
		os.Exit(1)
	}
	if err := tropic.WriteKeyHexFile(*pubOut, pub); err != nil {
		fmt.Printf("Error saving public key: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Printf("SUCCESS: slot %d provisioned\n", slot)
	fmt.Printf("Private key: %s\n", *privOut)
	fmt.Printf("Public key:  %s\n", *pubOut)
}

func confirm() bool {
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	line = strings.ToLower(strings.TrimSpace(line))
	return line == "y" || line == "yes"
}

// selectMenu runs an arrow-key driven picker over items and returns the
// chosen index, or -1 on Ctrl-C/read error.
func selectMenu(prompt string, items []string) int {
	if len(items) == 0 {
		return -1
	}

	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting raw mode: %v\r\n", err)
		return -1
	}
	defer term.Restore(int(os.Stdin.Fd()), oldState)

	selected := 0
	render := func() {
		fmt.Printf("\033[%dA", len(items))
		for i, item := range items {
			fmt.Print("\033[2K\r")
			if i == selected {
				fmt.Printf("> %s\r\n", item)
			} else {
				fmt.Printf("  %s\r\n", item)
			}
		}
	}

	fmt.Printf("%s\r\n", prompt)
	for i, item := range items {
		if i == selected {
			fmt.Printf("> %s\r\n", item)
		} else {
			fmt.Printf("  %s\r\n", item)
		}
	}

	buf := make([]byte, 3)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return -1
		}
		if n == 1 {
			switch buf[0] {
			case 0x0D, 0x0A:
				fmt.Printf("\r\n")
				return selected
			case 0x03:
				term.Restore(int(os.Stdin.Fd()), oldState)
				fmt.Printf("\r\n")
				os.Exit(0)
			}
		} else if n == 3 && buf[0] == 0x1B && buf[1] == '[' {
			switch buf[2] {
			case 'A':
				if selected > 0 {
					selected--
					render()
				}
			case 'B':
				if selected < len(items)-1 {
					selected++
					render()
				}
			}
		}
	}
}
