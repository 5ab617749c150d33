package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/corpintel/edgargraph/internal/config"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Interactive setup wizard (with OS keychain support)",
	Long: `Walk through EdgarGraph configuration step-by-step.

This will configure:
1. SEC EDGAR User-Agent (required by the SEC fair-access policy)
2. Neo4j connection
3. LLM provider and API key (stored in OS keychain by default)`,
	RunE: runConfigure,
}

func runConfigure(cmd *cobra.Command, args []string) error {
	fmt.Println("🔧 EdgarGraph Configuration Wizard")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	homeDir, _ := os.UserHomeDir()
	configPath := filepath.Join(homeDir, ".edgargraph", "config.yaml")
	loadedCfg, err := config.Load(configPath)
	if err != nil {
		loadedCfg = config.Default()
	}

	// Step 1: EDGAR User-Agent
	fmt.Println("Step 1/4: SEC EDGAR User-Agent")
	fmt.Println()
	fmt.Println("The SEC requires every client to identify itself with a")
	fmt.Println("User-Agent of the form: \"Your Name your.email@example.com\"")
	if loadedCfg.Edgar.UserAgent != "" {
		fmt.Printf("Current: %s\n", loadedCfg.Edgar.UserAgent)
	}
	fmt.Print("User-Agent (Enter to keep current): ")
	if response := readLine(reader); response != "" {
		loadedCfg.Edgar.UserAgent = response
	}
	fmt.Println()

	// Step 2: Neo4j
	fmt.Println("Step 2/4: Neo4j Connection")
	fmt.Println()
	fmt.Printf("Current URI: %s\n", loadedCfg.Neo4j.URI)
	fmt.Print("Neo4j URI (Enter to keep current): ")
	if response := readLine(reader); response != "" {
		loadedCfg.Neo4j.URI = response
	}
	fmt.Printf("Current username: %s\n", loadedCfg.Neo4j.Username)
	fmt.Print("Username (Enter to keep current): ")
	if response := readLine(reader); response != "" {
		loadedCfg.Neo4j.Username = response
	}
	fmt.Print("Password (Enter to keep current, input hidden): ")
	if password := readPassword(); password != "" {
		loadedCfg.Neo4j.Password = password
	}
	fmt.Println()

	// Step 3: LLM provider
	fmt.Println("Step 3/4: LLM Provider")
	fmt.Println()
	fmt.Println("LLM extraction is a fallback for filings the rule-based")
	fmt.Println("parsers cannot read. Skip it to run rule-based only.")
	fmt.Println("  1. anthropic (recommended)")
	fmt.Println("  2. openai")
	fmt.Println("  3. none (disable LLM extraction)")
	fmt.Printf("Current: %s\n", loadedCfg.LLM.Provider)
	fmt.Print("Select provider (1-3) or press Enter to keep current: ")

	switch readLine(reader) {
	case "1":
		loadedCfg.LLM.Provider = "anthropic"
	case "2":
		loadedCfg.LLM.Provider = "openai"
	case "3":
		loadedCfg.LLM.Provider = "none"
	}

	if loadedCfg.LLM.Provider != "none" && loadedCfg.LLM.Provider != "" {
		if err := configureAPIKey(reader, loadedCfg); err != nil {
			return err
		}
	}
	fmt.Println()

	// Step 4: Save
	fmt.Println("Step 4/4: Save Configuration")
	fmt.Println()
	fmt.Printf("Save to: %s\n", configPath)
	fmt.Print("Confirm? (Y/n): ")

	response := readLine(reader)
	if response == "" || strings.EqualFold(response, "y") {
		if err := loadedCfg.Save(configPath); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Println("✅ Configuration saved!")
		fmt.Println()
		fmt.Println("Next steps:")
		fmt.Println("  edgargraph ingest 320193        # ingest one company")
		fmt.Println("  edgargraph scan events 320193   # scan its 8-Ks")
		fmt.Println("  edgargraph status               # see what the graph holds")
	} else {
		fmt.Println("⏭️  Configuration not saved")
	}
	return nil
}

func configureAPIKey(reader *bufio.Reader, loadedCfg *config.Config) error {
	provider := loadedCfg.LLM.Provider
	current := loadedCfg.LLM.AnthropicKey
	if provider == "openai" {
		current = loadedCfg.LLM.OpenAIKey
	}

	fmt.Println()
	if current != "" || loadedCfg.LLM.UseKeychain {
		fmt.Printf("Current %s key: %s\n", provider, config.MaskAPIKey(current))
		fmt.Print("Keep existing key? (Y/n): ")
		response := readLine(reader)
		if response == "" || strings.EqualFold(response, "y") {
			return nil
		}
	}

	fmt.Printf("Enter your %s API key (input hidden): ", provider)
	apiKey := readPassword()
	if apiKey == "" {
		fmt.Println("⏭️  No key entered, skipping")
		return nil
	}

	wasKeychain := loadedCfg.LLM.UseKeychain
	km := config.NewKeyringManager()
	if km.IsAvailable() {
		fmt.Println("🔒 Storage options:")
		fmt.Println("  1. OS keychain (recommended, encrypted)")
		fmt.Println("  2. Config file (plaintext)")
		fmt.Print("Choose storage method (1-2): ")

		if response := readLine(reader); response == "" || response == "1" {
			if err := km.SaveAPIKey(provider, apiKey); err != nil {
				fmt.Printf("⚠️  Failed to save to keychain: %v\n", err)
				fmt.Println("Saving to config file instead...")
				setAPIKey(loadedCfg, provider, apiKey, false)
				return nil
			}
			fmt.Println("✅ API key saved to OS keychain")
			setAPIKey(loadedCfg, provider, "", true)
			return nil
		}
	} else {
		fmt.Println("⚠️  OS keychain not available (headless system?), using config file")
	}

	// Moving to config-file storage: remove the now-unused keychain entry.
	if wasKeychain && km.IsAvailable() {
		if err := km.DeleteAPIKey(provider); err != nil {
			fmt.Printf("⚠️  Could not remove old keychain entry: %v\n", err)
		}
	}
	setAPIKey(loadedCfg, provider, apiKey, false)
	fmt.Println("✅ API key saved to config file (plaintext)")
	return nil
}

func setAPIKey(loadedCfg *config.Config, provider, key string, useKeychain bool) {
	loadedCfg.LLM.UseKeychain = useKeychain
	if provider == "openai" {
		loadedCfg.LLM.OpenAIKey = key
		return
	}
	loadedCfg.LLM.AnthropicKey = key
}

func readLine(reader *bufio.Reader) string {
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

// readPassword reads without echo, falling back to a visible prompt when
// stdin is not a terminal (piped input in tests or scripts).
func readPassword() string {
	if term.IsTerminal(int(syscall.Stdin)) {
		data, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(data))
	}
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimSpace(line)
}
