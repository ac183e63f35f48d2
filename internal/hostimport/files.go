package hostimport

import (
	"context"
	"fmt"

	"github.com/klyx-dev/extensionrt/internal/collaborator"
)

func parseDownloadType(kind string) collaborator.DownloadType {
	switch kind {
	case "gzip":
		return collaborator.DownloadGzip
	case "gzip-tar":
		return collaborator.DownloadGzipTar
	case "zip":
		return collaborator.DownloadZip
	default:
		return collaborator.DownloadUncompressed
	}
}

type downloadFileArg struct {
	URL      string `json:"url"`
	DestPath string `json:"dest_path"`
	Kind     string `json:"kind"` // "gzip" | "gzip-tar" | "zip" | "uncompressed"
}

func (d *Dispatcher) downloadFile(ctx context.Context, arg downloadFileArg) error {
	if err := d.granter.GrantDownloadFile(arg.URL); err != nil {
		return err
	}
	if d.collab.Download == nil {
		panic(fmt.Errorf("hostimport: no downloader collaborator configured"))
	}
	dest, err := d.sandbox.WritablePath(arg.DestPath)
	if err != nil {
		return err
	}
	return d.collab.Download.Download(ctx, arg.URL, dest, parseDownloadType(arg.Kind))
}

type unzipFileArg struct {
	SrcPath string `json:"src_path"`
	DstPath string `json:"dst_path"`
}

func (d *Dispatcher) unzipFile(ctx context.Context, arg unzipFileArg) error {
	if d.collab.Unzip == nil {
		panic(fmt.Errorf("hostimport: no unzipper collaborator configured"))
	}
	src, err := d.sandbox.WritablePath(arg.SrcPath)
	if err != nil {
		return err
	}
	dst, err := d.sandbox.WritablePath(arg.DstPath)
	if err != nil {
		return err
	}
	return d.collab.Unzip.Unzip(ctx, src, dst)
}

type makeFileExecutableArg struct {
	Path string `json:"path"`
}

func (d *Dispatcher) makeFileExecutable(_ context.Context, arg makeFileExecutableArg) error {
	path, err := d.sandbox.WritablePath(arg.Path)
	if err != nil {
		return err
	}
	return chmodExecutable(path)
}
