package hostimport

import (
	"context"
	"fmt"

	"github.com/klyx-dev/extensionrt/internal/collaborator"
)

type releaseAssetResult struct {
	Name        string `json:"name"`
	DownloadURL string `json:"download_url"`
}

type releaseResult struct {
	Version string               `json:"version"`
	Assets  []releaseAssetResult `json:"assets"`
}

func toReleaseResult(r collaborator.Release) releaseResult {
	assets := make([]releaseAssetResult, len(r.Assets))
	for i, a := range r.Assets {
		assets[i] = releaseAssetResult{Name: a.Name, DownloadURL: a.DownloadURL}
	}
	return releaseResult{Version: r.Version, Assets: assets}
}

type latestGithubReleaseArg struct {
	Repo               string `json:"repo"`
	IncludePreReleases bool   `json:"include_pre_releases"`
}

func (d *Dispatcher) latestGithubRelease(ctx context.Context, arg latestGithubReleaseArg) (releaseResult, error) {
	if d.collab.CodeHost == nil {
		panic(fmt.Errorf("hostimport: no code-host collaborator configured"))
	}
	opts := collaborator.ReleaseOptions{}
	if arg.IncludePreReleases {
		opts["include_pre_releases"] = "true"
	}
	r, err := d.collab.CodeHost.LatestRelease(ctx, arg.Repo, opts)
	if err != nil {
		return releaseResult{}, err
	}
	return toReleaseResult(r), nil
}

type githubReleaseByTagNameArg struct {
	Repo string `json:"repo"`
	Tag  string `json:"tag"`
}

func (d *Dispatcher) githubReleaseByTagName(ctx context.Context, arg githubReleaseByTagNameArg) (releaseResult, error) {
	if d.collab.CodeHost == nil {
		panic(fmt.Errorf("hostimport: no code-host collaborator configured"))
	}
	r, err := d.collab.CodeHost.ReleaseByTag(ctx, arg.Repo, arg.Tag)
	if err != nil {
		return releaseResult{}, err
	}
	return toReleaseResult(r), nil
}
