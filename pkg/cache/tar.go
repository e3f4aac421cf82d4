package cache

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// Archives written with `zstd --long=30` need a window above the decoder
// default.
const zstdMaxWindow = 1 << 31

// extractTar unpacks archivePath into workspace. Entry names are relative
// to the workspace unless absolute.
func extractTar(archivePath string, compression CompressionMethod, workspace string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader
	switch compression {
	case CompressionGzip:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return errors.Wrap(err, "open gzip archive")
		}
		defer gz.Close()
		r = gz
	default:
		dec, err := zstd.NewReader(f, zstd.WithDecoderMaxWindow(zstdMaxWindow))
		if err != nil {
			return errors.Wrap(err, "open zstd archive")
		}
		defer dec.Close()
		r = dec
	}

	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return err
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "read archive")
		}

		target := resolve(workspace, hdr.Name)
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, hdr.FileInfo().Mode().Perm()|0o700); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(target, hdr, tr); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			_ = os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		case tar.TypeLink:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			_ = os.Remove(target)
			if err := os.Link(resolve(workspace, hdr.Linkname), target); err != nil {
				return err
			}
		}
	}
}

func resolve(workspace, name string) string {
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(workspace, filepath.FromSlash(name))
}

func writeFile(target string, hdr *tar.Header, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, hdr.FileInfo().Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "extract %s", hdr.Name)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Chtimes(target, hdr.ModTime, hdr.ModTime)
}
