package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/illarion/secokv"
	"github.com/illarion/secokv/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "init":
		err = runInit(ctx, os.Args[2:])
	case "get":
		err = runGet(ctx, os.Args[2:])
	case "set":
		err = runSet(ctx, os.Args[2:])
	case "rm":
		err = runRm(ctx, os.Args[2:])
	case "dump":
		err = runDump(ctx, os.Args[2:])
	case "load":
		err = runLoad(ctx, os.Args[2:])
	case "keys", "ls":
		err = runKeys(ctx, os.Args[2:])
	case "passwd":
		err = runPasswd(ctx, os.Args[2:])
	case "diff":
		err = runDiff(ctx, os.Args[2:])
	case "status":
		err = runStatus(ctx, os.Args[2:])
	case "compact":
		err = runCompact(ctx, os.Args[2:])
	case "keyring":
		err = runKeyring(ctx, os.Args[2:])
	case "completion":
		err = runCompletion(ctx, os.Args[2:])
	case "help", "-h", "--help":
		if len(os.Args) <= 2 {
			printUsage()
			return
		}
		printCommandHelp(os.Args[2])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		stop()
		cli.HandleError(err)
	}
}

// newFlagSet returns a flag set carrying the -f/--file store path flags
func newFlagSet(name string) (*flag.FlagSet, func() string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	short := fs.String("f", "", "Store file (default $SECOKV_FILE or "+cli.DefaultFile+")")
	long := fs.String("file", "", "Store file (default $SECOKV_FILE or "+cli.DefaultFile+")")
	return fs, func() string {
		if *short != "" {
			return cli.ResolvePath(*short)
		}
		return cli.ResolvePath(*long)
	}
}

func parse(fs *flag.FlagSet, args []string) {
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func requireArgs(fs *flag.FlagSet, n int, usage string) []string {
	if fs.NArg() < n {
		fmt.Fprintf(os.Stderr, "Usage: %s\n", usage)
		os.Exit(1)
	}
	return fs.Args()
}

func runInit(ctx context.Context, args []string) error {
	fs, path := newFlagSet("init")
	app := fs.String("app", "", "Application name recorded in the file")
	appVersion := fs.String("app-version", "", "Application version recorded in the file")
	parse(fs, args)

	return cli.Init(ctx, path(), secokv.Header{Name: *app, Version: *appVersion})
}

func runGet(ctx context.Context, args []string) error {
	fs, path := newFlagSet("get")
	raw := fs.Bool("raw", false, "Print string values without quotes")
	parse(fs, args)
	rest := requireArgs(fs, 1, "secokv get [-raw] <key>")

	return cli.Get(ctx, path(), rest[0], *raw)
}

func runSet(ctx context.Context, args []string) error {
	fs, path := newFlagSet("set")
	asString := fs.Bool("s", false, "Store the value as a string instead of parsing JSON")
	parse(fs, args)
	rest := requireArgs(fs, 2, "secokv set [-s] <key> <value>")

	return cli.Set(ctx, path(), rest[0], rest[1], *asString)
}

func runRm(ctx context.Context, args []string) error {
	fs, path := newFlagSet("rm")
	parse(fs, args)
	rest := requireArgs(fs, 1, "secokv rm <key> [key...]")

	return cli.Remove(ctx, path(), rest)
}

func runDump(ctx context.Context, args []string) error {
	fs, path := newFlagSet("dump")
	parse(fs, args)

	return cli.Dump(ctx, path())
}

func runLoad(ctx context.Context, args []string) error {
	fs, path := newFlagSet("load")
	parse(fs, args)
	rest := requireArgs(fs, 1, "secokv load <file.json|->")

	return cli.Load(ctx, path(), rest[0])
}

func runKeys(ctx context.Context, args []string) error {
	fs, path := newFlagSet("keys")
	parse(fs, args)

	return cli.Keys(ctx, path())
}

func runPasswd(ctx context.Context, args []string) error {
	fs, path := newFlagSet("passwd")
	parse(fs, args)

	return cli.Passwd(ctx, path())
}

func runDiff(ctx context.Context, args []string) error {
	fs, path := newFlagSet("diff")
	parse(fs, args)
	rest := requireArgs(fs, 1, "secokv diff <file.json|->")

	return cli.Diff(ctx, path(), rest[0])
}

func runStatus(_ context.Context, args []string) error {
	fs, path := newFlagSet("status")
	parse(fs, args)

	return cli.Status(path())
}

func runCompact(_ context.Context, args []string) error {
	fs, path := newFlagSet("compact")
	parse(fs, args)

	return cli.Compact(path())
}

func runKeyring(ctx context.Context, args []string) error {
	fs, path := newFlagSet("keyring")
	parse(fs, args)
	rest := requireArgs(fs, 1, "secokv keyring <save|delete|status>")

	switch rest[0] {
	case "save":
		return cli.KeyringSave(ctx, path())
	case "delete":
		return cli.KeyringDelete(path())
	case "status":
		return cli.KeyringStatus(path())
	default:
		return fmt.Errorf("unknown keyring command: %s", rest[0])
	}
}

func runCompletion(_ context.Context, args []string) error {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: secokv completion <bash|zsh|fish>")
		os.Exit(1)
	}
	return cli.Completion(args[0])
}

func printUsage() {
	fmt.Println("secokv - Encrypted JSON key-value store")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  secokv <command> [-f file] [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init        Create a new encrypted store")
	fmt.Println("  get         Print the value stored under a key")
	fmt.Println("  set         Store a JSON value under a key")
	fmt.Println("  rm          Remove keys from the store")
	fmt.Println("  dump        Print the whole store as JSON")
	fmt.Println("  load        Replace the store contents with a JSON file")
	fmt.Println("  keys, ls    List keys")
	fmt.Println("  passwd      Change the store passphrase")
	fmt.Println("  diff        Compare the store with a JSON file")
	fmt.Println("  status      Show store metadata")
	fmt.Println("  compact     Compact the store to reclaim disk space")
	fmt.Println("  keyring     Manage the passphrase in the OS keyring")
	fmt.Println("  completion  Generate shell completions")
	fmt.Println("  help        Show help for a command")
	fmt.Println()
	fmt.Println("The store file defaults to $SECOKV_FILE, then ./" + cli.DefaultFile + ".")
	fmt.Println("The passphrase is read from $SECOKV_PASSPHRASE, the OS keyring, or a prompt.")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  secokv init                         # Create new store")
	fmt.Println("  secokv set user '{\"name\":\"JP\"}'     # Store a JSON object")
	fmt.Println("  secokv get -raw token               # Print a string value")
	fmt.Println("  secokv dump > backup.json           # Export everything")
	fmt.Println()
	fmt.Println("Use 'secokv help <command>' for more information about a command.")
}

func printCommandHelp(command string) {
	switch command {
	case "init":
		fmt.Println("secokv init [-app NAME] [-app-version VERSION]")
		fmt.Println()
		fmt.Println("Creates an empty encrypted store.")
		fmt.Println("Prompts for a passphrase that will be used for encryption.")
		fmt.Println("The application name and version are recorded unencrypted in the file.")
	case "get":
		fmt.Println("secokv get [-raw] <key>")
		fmt.Println()
		fmt.Println("Prints the value stored under key as JSON.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  -raw    Print string values without quotes")
	case "set":
		fmt.Println("secokv set [-s] <key> <value>")
		fmt.Println()
		fmt.Println("Stores value under key. The value is parsed as JSON.")
		fmt.Println("The file is only rewritten when the contents change.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  -s      Store value as a plain string")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  secokv set port 8080")
		fmt.Println("  secokv set -s token abc123")
	case "rm":
		fmt.Println("secokv rm <key> [key...]")
		fmt.Println()
		fmt.Println("Removes keys in a single write, then compacts the file.")
	case "dump":
		fmt.Println("secokv dump")
		fmt.Println()
		fmt.Println("Prints the whole store as indented JSON.")
	case "load":
		fmt.Println("secokv load <file.json|->")
		fmt.Println()
		fmt.Println("Replaces the store contents with the JSON object in file.")
		fmt.Println("Use - to read from stdin.")
	case "keys", "ls":
		fmt.Println("secokv keys")
		fmt.Println()
		fmt.Println("Lists keys, one per line.")
	case "passwd":
		fmt.Println("secokv passwd")
		fmt.Println()
		fmt.Println("Changes the store passphrase.")
		fmt.Println("Requires both the current and new passphrases.")
		fmt.Println("Updates the keyring entry if one exists.")
	case "diff":
		fmt.Println("secokv diff <file.json|->")
		fmt.Println()
		fmt.Println("Shows a line diff between the store contents and a JSON file.")
	case "status":
		fmt.Println("secokv status")
		fmt.Println()
		fmt.Println("Shows size, timestamps, application header and keyring state.")
		fmt.Println()
		fmt.Println("Does not require a passphrase.")
	case "compact":
		fmt.Println("secokv compact")
		fmt.Println()
		fmt.Println("Compacts the store file to reclaim unused disk space.")
		fmt.Println("This is done automatically after 'rm', 'load' and 'passwd'.")
		fmt.Println()
		fmt.Println("Does not require a passphrase.")
	case "keyring":
		fmt.Println("secokv keyring <save|delete|status>")
		fmt.Println()
		fmt.Println("Manages the store passphrase in the OS keyring.")
	case "completion":
		fmt.Println("secokv completion <bash|zsh|fish>")
		fmt.Println()
		fmt.Println("Outputs shell completion script for the specified shell.")
		fmt.Println()
		fmt.Println("Setup:")
		fmt.Println("  # Bash - add to ~/.bashrc")
		fmt.Println("  eval \"$(secokv completion bash)\"")
		fmt.Println()
		fmt.Println("  # Zsh - add to ~/.zshrc")
		fmt.Println("  eval \"$(secokv completion zsh)\"")
		fmt.Println()
		fmt.Println("  # Fish - add to ~/.config/fish/config.fish")
		fmt.Println("  secokv completion fish | source")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
	}
}
