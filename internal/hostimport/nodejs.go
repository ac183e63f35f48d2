package hostimport

import (
	"context"
	"fmt"
)

type npmInstallPackageArg struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func (d *Dispatcher) npmInstallPackage(ctx context.Context, arg npmInstallPackageArg) error {
	if err := d.granter.GrantNPMInstallPackage(arg.Name); err != nil {
		return err
	}
	if d.collab.NodeJS == nil {
		panic(fmt.Errorf("hostimport: no nodejs collaborator configured"))
	}
	return d.collab.NodeJS.NpmInstallPackage(ctx, d.sandbox.WorkDir, arg.Name, arg.Version)
}

func (d *Dispatcher) nodeBinaryPath(ctx context.Context, _ noArg) (string, error) {
	if d.collab.NodeJS == nil {
		panic(fmt.Errorf("hostimport: no nodejs collaborator configured"))
	}
	return d.collab.NodeJS.NodeBinaryPath(ctx)
}

type npmPackageNameArg struct {
	Name string `json:"name"`
}

func (d *Dispatcher) npmPackageLatestVersion(ctx context.Context, arg npmPackageNameArg) (string, error) {
	if d.collab.NodeJS == nil {
		panic(fmt.Errorf("hostimport: no nodejs collaborator configured"))
	}
	return d.collab.NodeJS.NpmPackageLatestVersion(ctx, arg.Name)
}

type npmPackageInstalledVersionArg struct {
	Name string `json:"name"`
}

type npmPackageInstalledVersionResult struct {
	Version *string `json:"version"`
}

func (d *Dispatcher) npmPackageInstalledVersion(ctx context.Context, arg npmPackageInstalledVersionArg) (npmPackageInstalledVersionResult, error) {
	if d.collab.NodeJS == nil {
		panic(fmt.Errorf("hostimport: no nodejs collaborator configured"))
	}
	v, err := d.collab.NodeJS.NpmPackageInstalledVersion(ctx, d.sandbox.WorkDir, arg.Name)
	if err != nil {
		return npmPackageInstalledVersionResult{}, err
	}
	return npmPackageInstalledVersionResult{Version: v}, nil
}
