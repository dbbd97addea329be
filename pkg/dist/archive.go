package dist

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"

	"github.com/andybalholm/brotli"
	"github.com/rotisserie/eris"
	"github.com/ulikunitz/xz"
)

// Extensions maps each compression format to its artifact file extension.
var Extensions = map[string]string{
	"gzip":   ".tar.gz",
	"xz":     ".tar.xz",
	"brotli": ".tar.br",
	"zip":    ".zip",
}

func writeArtifact(path, format, root string, files []string) error {
	handle, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "Failed to create %s", path)
	}

	err = compressInto(handle, format, root, files)
	if err != nil {
		handle.Close()
		return err
	}

	err = handle.Close()
	if err != nil {
		return eris.Wrapf(err, "Failed to finalize %s", path)
	}

	return nil
}

func compressInto(dst io.Writer, format, root string, files []string) error {
	switch format {
	case "zip":
		return writeZip(dst, root, files)
	case "gzip":
		compressor := gzip.NewWriter(dst)
		err := writeTar(compressor, root, files)
		if err != nil {
			return err
		}
		return compressor.Close()
	case "xz":
		compressor, err := xz.NewWriter(dst)
		if err != nil {
			return eris.Wrap(err, "Failed to initialize the xz writer")
		}
		err = writeTar(compressor, root, files)
		if err != nil {
			return err
		}
		return compressor.Close()
	case "brotli":
		compressor := brotli.NewWriterLevel(dst, brotli.BestCompression)
		err := writeTar(compressor, root, files)
		if err != nil {
			return err
		}
		return compressor.Close()
	}

	return eris.Errorf("unknown compression format %s", format)
}

func writeTar(dst io.Writer, root string, files []string) error {
	archive := tar.NewWriter(dst)
	buf := make([]byte, 4096)

	for _, file := range files {
		fullPath := filepath.Join(root, filepath.FromSlash(file))
		info, err := os.Stat(fullPath)
		if err != nil {
			return eris.Wrapf(err, "Failed to check %s", fullPath)
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return eris.Wrapf(err, "Failed to build the header for %s", file)
		}
		header.Name = file

		err = archive.WriteHeader(header)
		if err != nil {
			return eris.Wrapf(err, "Failed to write the header for %s", file)
		}

		handle, err := os.Open(fullPath)
		if err != nil {
			return eris.Wrapf(err, "Failed to open %s", fullPath)
		}

		_, err = io.CopyBuffer(archive, handle, buf)
		handle.Close()
		if err != nil {
			return eris.Wrapf(err, "Failed to archive %s", file)
		}
	}

	return archive.Close()
}

func writeZip(dst io.Writer, root string, files []string) error {
	archive := zip.NewWriter(dst)
	buf := make([]byte, 4096)

	for _, file := range files {
		fullPath := filepath.Join(root, filepath.FromSlash(file))
		info, err := os.Stat(fullPath)
		if err != nil {
			return eris.Wrapf(err, "Failed to check %s", fullPath)
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return eris.Wrapf(err, "Failed to build the header for %s", file)
		}
		header.Name = file
		header.Method = zip.Deflate

		writer, err := archive.CreateHeader(header)
		if err != nil {
			return eris.Wrapf(err, "Failed to write the header for %s", file)
		}

		handle, err := os.Open(fullPath)
		if err != nil {
			return eris.Wrapf(err, "Failed to open %s", fullPath)
		}

		_, err = io.CopyBuffer(writer, handle, buf)
		handle.Close()
		if err != nil {
			return eris.Wrapf(err, "Failed to archive %s", file)
		}
	}

	return archive.Close()
}
