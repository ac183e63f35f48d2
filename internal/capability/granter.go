// Package capability defines the policy gate consulted before any
// externally observable mutation a guest asks the host to perform
// (spec §4.G). The runtime never encodes policy as data — a granter is a
// caller-supplied interface so policies can be composed freely outside
// the runtime core.
package capability

import "fmt"

// Granter is consulted synchronously, in the control flow of the
// triggering host import, before the collaborator is ever contacted.
// A denial is returned to the guest as an ordinary error string, never a
// trap: policy refusal is part of the contract, not a runtime failure.
type Granter interface {
	GrantExec(command string, args []string) error
	GrantDownloadFile(url string) error
	GrantNPMInstallPackage(name string) error
}

// DenyAll refuses every request. Useful as a conservative default and in
// tests asserting that a collaborator is never reached on denial.
type DenyAll struct{}

func (DenyAll) GrantExec(command string, _ []string) error {
	return fmt.Errorf("capability denied: exec %q", command)
}

func (DenyAll) GrantDownloadFile(url string) error {
	return fmt.Errorf("capability denied: download %q", url)
}

func (DenyAll) GrantNPMInstallPackage(name string) error {
	return fmt.Errorf("capability denied: npm install %q", name)
}

// AllowAll grants every request unconditionally. Intended for local
// development and for the binary inspector/actor test fixtures; never a
// safe default for a runtime embedding untrusted extensions.
type AllowAll struct{}

func (AllowAll) GrantExec(string, []string) error    { return nil }
func (AllowAll) GrantDownloadFile(string) error      { return nil }
func (AllowAll) GrantNPMInstallPackage(string) error { return nil }

// Func adapts three closures into a Granter, letting callers compose
// policy (allowlists, prompts, rate limits) without a bespoke type.
type Func struct {
	Exec          func(command string, args []string) error
	DownloadFile  func(url string) error
	NPMInstallPkg func(name string) error
}

func (f Func) GrantExec(command string, args []string) error {
	if f.Exec == nil {
		return nil
	}
	return f.Exec(command, args)
}

func (f Func) GrantDownloadFile(url string) error {
	if f.DownloadFile == nil {
		return nil
	}
	return f.DownloadFile(url)
}

func (f Func) GrantNPMInstallPackage(name string) error {
	if f.NPMInstallPkg == nil {
		return nil
	}
	return f.NPMInstallPkg(name)
}
