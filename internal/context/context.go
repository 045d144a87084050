package context

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// DefaultFile is used when no table file is configured and one with this
// name exists in the working directory.
const DefaultFile = "mob_proto.txt"

// ErrNoFile is returned when no table file can be determined.
var ErrNoFile = errors.New("no table file given (use --file, MOBPROTO_FILE or \"file\" in " + ConfigFileName + ")")

// Context holds the resolved runtime context for mobproto commands.
type Context struct {
	Actor     string // Resolved actor name
	File      string // Table file (may be empty)
	NamesFile string // Localized names table (may be empty)
	Config    Config
}

// ResolveInput holds flag values; empty means not given.
type ResolveInput struct {
	ActorFlag  string
	FileFlag   string
	ConfigFlag string
	WorkDir    string
}

// Resolve builds the context from flags, environment and config files.
// The file is chosen from, in order: --file, $MOBPROTO_FILE, the config
// "file" key, then mob_proto.txt in the working directory if present.
// The names file defaults to mob_names.txt next to the table.
func Resolve(input ResolveInput) (*Context, error) {
	workDir := input.WorkDir
	if workDir == "" {
		workDir, _ = os.Getwd()
	}
	cfg, err := LoadConfig(LoadConfigInput{WorkDir: workDir, ConfigPath: input.ConfigFlag, Env: environ()})
	if err != nil {
		return nil, err
	}

	ctx := &Context{Actor: ResolveActor(input.ActorFlag), Config: cfg}
	switch {
	case input.FileFlag != "":
		ctx.File = input.FileFlag
	case os.Getenv("MOBPROTO_FILE") != "":
		ctx.File = os.Getenv("MOBPROTO_FILE")
	case cfg.File != "":
		ctx.File = cfg.File
	default:
		if p := filepath.Join(workDir, DefaultFile); fileExists(p) {
			ctx.File = p
		}
	}

	ctx.NamesFile = cfg.NamesFile
	if ctx.NamesFile == "" && ctx.File != "" {
		if p := filepath.Join(filepath.Dir(ctx.File), "mob_names.txt"); fileExists(p) {
			ctx.NamesFile = p
		}
	}
	return ctx, nil
}

// ResolveRequired is like Resolve but fails with ErrNoFile when no table
// file is known.
func ResolveRequired(input ResolveInput) (*Context, error) {
	ctx, err := Resolve(input)
	if err != nil {
		return nil, err
	}
	if ctx.File == "" {
		return nil, ErrNoFile
	}
	return ctx, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}
