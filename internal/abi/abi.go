// Package abi implements the versioned binding layer spec §4.H describes:
// a tagged variant over supported guest ABI versions, each exposing the
// same set of guest-facing export names but with per-variant argument and
// result conversions kept local to that variant's file. New ABI versions
// are added as new variants, never as branches inside a shared
// abstraction — see spec §9 "Versioned binding as a tagged variant".
package abi

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	"github.com/klyx-dev/extensionrt/internal/binaryinspect"
)

// Exports a guest component must provide under every supported ABI
// version.
const (
	ExportInitExtension                           = "init-extension"
	ExportLanguageServerCommand                   = "language-server-command"
	ExportLanguageServerInitializationOptions     = "language-server-initialization-options"
	ExportLanguageServerWorkspaceConfiguration    = "language-server-workspace-configuration"
	ExportLanguageServerAdditionalInitOptions     = "language-server-additional-initialization-options"
	ExportLanguageServerAdditionalWorkspaceConfig = "language-server-additional-workspace-configuration"
	ExportLabelsForCompletions                    = "labels-for-completions"
	ExportLabelsForSymbols                         = "labels-for-symbols"
)

// Binding is implemented by each ABI variant. Methods mirror the guest
// exports above; callers invoke them after instantiation through
// internal/actor, which serializes access to the single guest instance.
type Binding interface {
	// Version reports which variant this binding is.
	Version() binaryinspect.Version

	InitExtension(ctx context.Context, mod api.Module) error

	LanguageServerCommand(ctx context.Context, mod api.Module, languageServerID string, worktree uint32) (Command, error)
	LanguageServerInitializationOptions(ctx context.Context, mod api.Module, languageServerID string, worktree uint32) (*string, error)
	LanguageServerWorkspaceConfiguration(ctx context.Context, mod api.Module, languageServerID string, worktree uint32) (*string, error)
	LanguageServerAdditionalInitializationOptions(ctx context.Context, mod api.Module, languageServerID, targetLanguageServerID string, worktree uint32) (*string, error)
	LanguageServerAdditionalWorkspaceConfiguration(ctx context.Context, mod api.Module, languageServerID, targetLanguageServerID string, worktree uint32) (*string, error)

	LabelsForCompletions(ctx context.Context, mod api.Module, languageServerID string, completions []Completion) ([]*CodeLabel, error)
	LabelsForSymbols(ctx context.Context, mod api.Module, languageServerID string, symbols []Symbol) ([]*CodeLabel, error)
}

// Command is the guest-returned shape of a language server launch command.
type Command struct {
	Command string
	Args    []string
	Env     map[string]string
}

// Completion and Symbol are the minimal guest-facing shapes labeling
// operations accept; richer IDE-side fields live entirely in the
// collaborator, not in the runtime core.
type Completion struct {
	Label  string
	Detail string
	Kind   string
}

type Symbol struct {
	Name string
	Kind string
}

// CodeLabel is the normalized shape labeling operations return per entry;
// a nil entry means the guest chose not to label that particular item.
type CodeLabel struct {
	Code       string
	Spans      []CodeLabelSpan
	Filtertext string
}

type CodeLabelSpan struct {
	Start, End uint32
}

// variants is the registry of every supported ABI version, in ascending
// order. Select picks the latest variant whose MinVersion is <= detected,
// giving forward compatibility within the supported range (spec scenario
// S2: a guest reporting 1.4.0 is served by the 1.3.6 binding).
var variants []Binding

// Register adds a Binding to the registry. Called from each variant's
// init() so the registry is fixed at program start and variants stay
// decoupled from Select's implementation.
func Register(b Binding) {
	variants = append(variants, b)
}

// ErrUnsupportedVersion is returned when no registered variant's minimum
// version is satisfied by detected.
type ErrUnsupportedVersion struct {
	Detected binaryinspect.Version
}

func (e ErrUnsupportedVersion) Error() string {
	return fmt.Sprintf("unsupported extension API version %s", e.Detected)
}

// Select returns the latest registered Binding whose version is <=
// detected, or ErrUnsupportedVersion if detected is older than every
// registered variant's minimum.
func Select(detected binaryinspect.Version) (Binding, error) {
	var best Binding
	for _, v := range variants {
		if v.Version().Less(detected) || v.Version() == detected {
			if best == nil || best.Version().Less(v.Version()) {
				best = v
			}
		}
	}
	if best == nil {
		return nil, ErrUnsupportedVersion{Detected: detected}
	}
	return best, nil
}
