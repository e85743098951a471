package main

import (
	"fmt"
	"os"

	"github.com/mantohq/manto/internal/config"
	"github.com/mantohq/manto/internal/store"
	"github.com/mantohq/manto/internal/vault"
)

func runVault(args []string) error {
	if len(args) == 0 {
		printVaultUsage()
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Vault.Passphrase == "" {
		return fmt.Errorf("vault passphrase is required (vault.passphrase or MANTO_VAULT_PASSPHRASE)")
	}

	db, err := store.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	keeper := vault.NewKeeper(vault.New(cfg.Vault.Passphrase), db)

	switch args[0] {
	case "list":
		return vaultList(keeper)
	case "set":
		return vaultSet(keeper, args[1:])
	case "get":
		return vaultGet(keeper, args[1:])
	case "delete":
		return vaultDelete(keeper, args[1:])
	default:
		printVaultUsage()
		return fmt.Errorf("unknown vault command: %s", args[0])
	}
}

func printVaultUsage() {
	fmt.Fprintf(os.Stderr, `Usage: manto vault <command>

Commands:
  list                List all secret names
  set <name> <value>  Store an encrypted secret
  get <name>          Retrieve and decrypt a secret
  delete <name>       Delete a secret

Reference a stored secret from config as "secret:<name>".
`)
}

func vaultList(keeper *vault.Keeper) error {
	names, err := keeper.List()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("No secrets stored.")
		return nil
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func vaultSet(keeper *vault.Keeper, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: manto vault set <name> <value>")
	}
	if err := keeper.Put(args[0], args[1]); err != nil {
		return err
	}
	fmt.Printf("Secret %q stored.\n", args[0])
	return nil
}

func vaultGet(keeper *vault.Keeper, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: manto vault get <name>")
	}
	value, err := keeper.Get(args[0])
	if err != nil {
		return err
	}
	fmt.Println(value)
	return nil
}

func vaultDelete(keeper *vault.Keeper, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: manto vault delete <name>")
	}
	if err := keeper.Delete(args[0]); err != nil {
		return err
	}
	fmt.Printf("Secret %q deleted.\n", args[0])
	return nil
}
