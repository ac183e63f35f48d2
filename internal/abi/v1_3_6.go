package abi

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	"github.com/klyx-dev/extensionrt/internal/binaryinspect"
)

// MinVersionV1_3_6 is the single currently-supported ABI variant's
// minimum version (spec §4.H: "currently a single variant V1_3_6").
var MinVersionV1_3_6 = binaryinspect.Version{Major: 1, Minor: 3, Patch: 6}

func init() {
	Register(v1_3_6{})
}

// v1_3_6 is the V1_3_6 binding variant. Every method here owns its own
// argument/result shapes; nothing is shared with a future variant's
// conversions even where the wire shape happens to coincide today.
type v1_3_6 struct{}

func (v1_3_6) Version() binaryinspect.Version { return MinVersionV1_3_6 }

func (v1_3_6) InitExtension(ctx context.Context, mod api.Module) error {
	fn := mod.ExportedFunction(ExportInitExtension)
	if fn == nil {
		return fmt.Errorf("abi: guest does not export %q", ExportInitExtension)
	}
	if _, err := fn.Call(ctx); err != nil {
		return fmt.Errorf("abi: %s: %w", ExportInitExtension, err)
	}
	return nil
}

type languageServerCommandArgs struct {
	LanguageServerID string `json:"language_server_id"`
	Worktree         uint32 `json:"worktree"`
}

func (v1_3_6) LanguageServerCommand(ctx context.Context, mod api.Module, languageServerID string, worktree uint32) (Command, error) {
	var cmd Command
	ok, errMsg, err := callWire(ctx, mod, ExportLanguageServerCommand,
		languageServerCommandArgs{LanguageServerID: languageServerID, Worktree: worktree}, &cmd)
	if err != nil {
		return Command{}, err
	}
	if !ok {
		return Command{}, guestError{errMsg}
	}
	return cmd, nil
}

type languageServerOptionsArgs struct {
	LanguageServerID string `json:"language_server_id"`
	Worktree         uint32 `json:"worktree"`
}

func (v1_3_6) LanguageServerInitializationOptions(ctx context.Context, mod api.Module, languageServerID string, worktree uint32) (*string, error) {
	return callOptionalString(ctx, mod, ExportLanguageServerInitializationOptions,
		languageServerOptionsArgs{LanguageServerID: languageServerID, Worktree: worktree})
}

func (v1_3_6) LanguageServerWorkspaceConfiguration(ctx context.Context, mod api.Module, languageServerID string, worktree uint32) (*string, error) {
	return callOptionalString(ctx, mod, ExportLanguageServerWorkspaceConfiguration,
		languageServerOptionsArgs{LanguageServerID: languageServerID, Worktree: worktree})
}

type languageServerAdditionalArgs struct {
	LanguageServerID       string `json:"language_server_id"`
	TargetLanguageServerID string `json:"target_language_server_id"`
	Worktree               uint32 `json:"worktree"`
}

func (v1_3_6) LanguageServerAdditionalInitializationOptions(ctx context.Context, mod api.Module, languageServerID, targetLanguageServerID string, worktree uint32) (*string, error) {
	return callOptionalString(ctx, mod, ExportLanguageServerAdditionalInitOptions,
		languageServerAdditionalArgs{LanguageServerID: languageServerID, TargetLanguageServerID: targetLanguageServerID, Worktree: worktree})
}

func (v1_3_6) LanguageServerAdditionalWorkspaceConfiguration(ctx context.Context, mod api.Module, languageServerID, targetLanguageServerID string, worktree uint32) (*string, error) {
	return callOptionalString(ctx, mod, ExportLanguageServerAdditionalWorkspaceConfig,
		languageServerAdditionalArgs{LanguageServerID: languageServerID, TargetLanguageServerID: targetLanguageServerID, Worktree: worktree})
}

type labelsForCompletionsArgs struct {
	LanguageServerID string       `json:"language_server_id"`
	Completions      []Completion `json:"completions"`
}

func (v1_3_6) LabelsForCompletions(ctx context.Context, mod api.Module, languageServerID string, completions []Completion) ([]*CodeLabel, error) {
	var labels []*CodeLabel
	ok, errMsg, err := callWire(ctx, mod, ExportLabelsForCompletions,
		labelsForCompletionsArgs{LanguageServerID: languageServerID, Completions: completions}, &labels)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, guestError{errMsg}
	}
	return labels, nil
}

type labelsForSymbolsArgs struct {
	LanguageServerID string   `json:"language_server_id"`
	Symbols          []Symbol `json:"symbols"`
}

func (v1_3_6) LabelsForSymbols(ctx context.Context, mod api.Module, languageServerID string, symbols []Symbol) ([]*CodeLabel, error) {
	var labels []*CodeLabel
	ok, errMsg, err := callWire(ctx, mod, ExportLabelsForSymbols,
		labelsForSymbolsArgs{LanguageServerID: languageServerID, Symbols: symbols}, &labels)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, guestError{errMsg}
	}
	return labels, nil
}

func callOptionalString(ctx context.Context, mod api.Module, export string, arg any) (*string, error) {
	var result *string
	ok, errMsg, err := callWire(ctx, mod, export, arg, &result)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, guestError{errMsg}
	}
	return result, nil
}

// guestError wraps a guest-returned error string (spec §7 GuestError),
// kept distinct from a Go error produced by host-side preparation so
// internal/actor can tell the two apart when deciding how to log a
// failure.
type guestError struct{ msg string }

func (e guestError) Error() string { return e.msg }

// IsGuestError reports whether err originated from the guest's own
// result<T, string> error arm rather than from host-side preparation.
func IsGuestError(err error) bool {
	_, ok := err.(guestError)
	return ok
}
