// Package manifest describes the identity of an installed extension.
package manifest

import "encoding/json"

// Manifest is the identity of an installed extension. It is immutable once
// loaded and is shared by the actor and every host-callback context that
// touches that extension.
type Manifest struct {
	// ID is the extension's stable identifier, used to derive its work
	// directory and to namespace log lines and error prefixes.
	ID string

	// Name is the display name surfaced to users and embedded in
	// error-lift prefixes ("from extension \"<name>\" version <version>:").
	Name string

	// Version is the extension's own release version string, distinct
	// from the guest ABI version negotiated from the component binary.
	Version string

	Description string
	Repository  string

	// LanguageServers and Grammars are opaque declaration blocks the core
	// runtime never interprets; external collaborators (the language
	// server launcher, the grammar loader) read them. Keeping them here
	// means host imports like get-settings can resolve a language-server
	// name back to manifest-declared configuration without the runtime
	// core depending on either collaborator's schema.
	LanguageServers map[string]json.RawMessage `json:"language_servers,omitempty"`
	Grammars        map[string]json.RawMessage `json:"grammars,omitempty"`
}

// String renders the "name version" form used throughout error prefixes.
func (m Manifest) String() string {
	return m.Name + " " + m.Version
}
