package markdown

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const separator = "\n\n"

// Concatenate writes the contents of files to output in order, each followed
// by a blank line. An existing output file is replaced; an empty file list
// produces an empty file.
func Concatenate(files []string, output string) (err error) {
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", output, err)
	}

	out, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(out)
	for _, path := range files {
		if err := appendFile(w, path); err != nil {
			return err
		}
		if _, err := w.WriteString(separator); err != nil {
			return err
		}
	}
	return w.Flush()
}

func appendFile(w io.Writer, path string) error {
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer in.Close()

	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("failed to copy %s: %w", path, err)
	}
	return nil
}

// RemoveFiles deletes the given files, continuing past failures.
func RemoveFiles(files []string) error {
	var errs []error
	for _, path := range files {
		if err := os.Remove(path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
