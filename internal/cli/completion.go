package cli

import "fmt"

// Completion outputs shell completion scripts
func Completion(shell string) error {
	script, ok := completionScript(shell)
	if !ok {
		return fmt.Errorf("unknown shell: %s (supported: bash, zsh, fish)", shell)
	}
	fmt.Print(script)
	return nil
}

func completionScript(shell string) (string, bool) {
	switch shell {
	case "bash":
		return bashCompletion, true
	case "zsh":
		return zshCompletion, true
	case "fish":
		return fishCompletion, true
	default:
		return "", false
	}
}

// Key completion runs 'secokv keys' with stdin closed, so it only succeeds
// when the passphrase comes from the environment or the keyring.

const bashCompletion = `_secokv() {
    local cur prev words cword
    _init_completion || return

    local commands="init get set rm dump load keys passwd diff status compact keyring help completion"

    if [[ $cword -eq 1 ]]; then
        COMPREPLY=($(compgen -W "$commands" -- "$cur"))
        return
    fi

    if [[ "$prev" == "-f" || "$prev" == "--file" ]]; then
        _filedir
        return
    fi

    local cmd="${words[1]}"
    case "$cmd" in
        get|set|rm)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "-f --file -s -raw" -- "$cur"))
            else
                local keys
                keys=$(secokv keys </dev/null 2>/dev/null)
                COMPREPLY=($(compgen -W "$keys" -- "$cur"))
            fi
            ;;
        load|diff)
            _filedir json
            ;;
        init)
            COMPREPLY=($(compgen -W "-f --file -app -app-version" -- "$cur"))
            ;;
        keyring)
            COMPREPLY=($(compgen -W "save delete status" -- "$cur"))
            ;;
        help)
            COMPREPLY=($(compgen -W "$commands" -- "$cur"))
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur"))
            ;;
    esac
}

complete -F _secokv secokv
`

const zshCompletion = `#compdef secokv

_secokv() {
    local -a commands
    commands=(
        'init:Create a new encrypted store'
        'get:Print the value stored under a key'
        'set:Store a JSON value under a key'
        'rm:Remove keys from the store'
        'dump:Print the whole store as JSON'
        'load:Replace the store contents with a JSON file'
        'keys:List keys'
        'passwd:Change the store passphrase'
        'diff:Compare the store with a JSON file'
        'status:Show store metadata'
        'compact:Compact the store file'
        'keyring:Manage passphrase in OS keyring'
        'help:Show help for a command'
        'completion:Generate shell completions'
    )

    _arguments -C \
        '1: :->command' \
        '*: :->args'

    case "$state" in
        command)
            _describe -t commands 'secokv commands' commands
            ;;
        args)
            case "${words[2]}" in
                get|set|rm)
                    _arguments '*:key:_secokv_keys'
                    ;;
                load|diff)
                    _arguments '*:json file:_files -g "*.json"'
                    ;;
                keyring)
                    _values 'subcommand' save delete status
                    ;;
                help)
                    _describe -t commands 'secokv commands' commands
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_secokv_keys() {
    local -a keys
    keys=(${(f)"$(secokv keys </dev/null 2>/dev/null)"})
    _describe -t keys 'store keys' keys
}

_secokv "$@"
`

const fishCompletion = `# secokv fish completions

set -l commands init get set rm dump load keys passwd diff status compact keyring help completion

complete -c secokv -f

# Commands
complete -c secokv -n "not __fish_seen_subcommand_from $commands" -a init -d 'Create a new store'
complete -c secokv -n "not __fish_seen_subcommand_from $commands" -a get -d 'Print a value'
complete -c secokv -n "not __fish_seen_subcommand_from $commands" -a set -d 'Store a value'
complete -c secokv -n "not __fish_seen_subcommand_from $commands" -a rm -d 'Remove keys'
complete -c secokv -n "not __fish_seen_subcommand_from $commands" -a dump -d 'Print the store as JSON'
complete -c secokv -n "not __fish_seen_subcommand_from $commands" -a load -d 'Replace contents from JSON'
complete -c secokv -n "not __fish_seen_subcommand_from $commands" -a keys -d 'List keys'
complete -c secokv -n "not __fish_seen_subcommand_from $commands" -a passwd -d 'Change passphrase'
complete -c secokv -n "not __fish_seen_subcommand_from $commands" -a diff -d 'Compare with a JSON file'
complete -c secokv -n "not __fish_seen_subcommand_from $commands" -a status -d 'Show store metadata'
complete -c secokv -n "not __fish_seen_subcommand_from $commands" -a compact -d 'Compact store'
complete -c secokv -n "not __fish_seen_subcommand_from $commands" -a keyring -d 'Manage passphrase in OS keyring'
complete -c secokv -n "not __fish_seen_subcommand_from $commands" -a help -d 'Show help'
complete -c secokv -n "not __fish_seen_subcommand_from $commands" -a completion -d 'Generate completions'

# keys for get, set and rm
complete -c secokv -n "__fish_seen_subcommand_from get set rm" -a "(secokv keys </dev/null 2>/dev/null)"

# files for load and diff
complete -c secokv -n "__fish_seen_subcommand_from load diff" -F

# keyring subcommands
complete -c secokv -n "__fish_seen_subcommand_from keyring" -a "save delete status"

# help completions
complete -c secokv -n "__fish_seen_subcommand_from help" -a "$commands"

# completion completions
complete -c secokv -n "__fish_seen_subcommand_from completion" -a "bash zsh fish"
`
