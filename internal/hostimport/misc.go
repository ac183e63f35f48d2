package hostimport

import (
	"context"
	"fmt"

	"github.com/klyx-dev/extensionrt/internal/collaborator"
)

type setLanguageServerInstallationStatusArg struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "checking-for-update" | "downloading" | "none" | "failed"
}

func (d *Dispatcher) setLanguageServerInstallationStatus(_ context.Context, arg setLanguageServerInstallationStatusArg) error {
	if d.collab.Status == nil {
		panic(fmt.Errorf("hostimport: no installation-status collaborator configured"))
	}
	d.collab.Status.SetLanguageServerInstallationStatus(arg.Name, parseInstallationStatus(arg.Status))
	return nil
}

func parseInstallationStatus(s string) collaborator.LanguageServerInstallationStatus {
	switch s {
	case "checking-for-update":
		return collaborator.StatusCheckingForUpdate
	case "downloading":
		return collaborator.StatusDownloading
	case "failed":
		return collaborator.StatusFailed
	default:
		return collaborator.StatusNone
	}
}

type getSettingsArg struct {
	Location string `json:"location"`
	Category string `json:"category"`
	Key      string `json:"key"`
}

type getSettingsResult struct {
	JSON string `json:"json"`
}

func (d *Dispatcher) getSettings(ctx context.Context, arg getSettingsArg) (getSettingsResult, error) {
	if d.collab.Settings == nil {
		panic(fmt.Errorf("hostimport: no settings collaborator configured"))
	}
	j, err := d.collab.Settings.GetSettings(ctx, arg.Location, arg.Category, arg.Key)
	if err != nil {
		return getSettingsResult{}, err
	}
	return getSettingsResult{JSON: j}, nil
}

type showToastArg struct {
	Message  string `json:"message"`
	Duration string `json:"duration"` // "short" | "long"
}

func (d *Dispatcher) showToast(_ context.Context, arg showToastArg) error {
	if d.collab.Toaster == nil {
		panic(fmt.Errorf("hostimport: no toaster collaborator configured"))
	}
	duration := collaborator.ToastShort
	if arg.Duration == "long" {
		duration = collaborator.ToastLong
	}
	d.collab.Toaster.ShowToast(arg.Message, duration)
	return nil
}
