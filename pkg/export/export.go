// Package export écrit le résultat d'un calcul en JSON, CSV ou XLSX.
// Chaque fichier est écrit dans un temporaire puis renommé : un échec
// ne laisse jamais de fichier partiel.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rfm-segments/pkg/models"
)

type Format string

const (
	JSON Format = "json"
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))); f {
	case JSON, CSV, XLSX:
		return f, nil
	}
	return "", fmt.Errorf("format inconnu %q", s)
}

// ParseFormats accepte une liste séparée par des virgules ("json,csv").
func ParseFormats(list []string) ([]Format, error) {
	var out []Format
	seen := make(map[Format]bool)
	for _, item := range list {
		for _, s := range strings.Split(item, ",") {
			if strings.TrimSpace(s) == "" {
				continue
			}
			f, err := ParseFormat(s)
			if err != nil {
				return nil, err
			}
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out, nil
}

// writers associe chaque format à son encodeur.
var writers = map[Format]func(io.Writer, models.Result) error{
	JSON: WriteJSON,
	CSV: func(w io.Writer, res models.Result) error {
		return WriteCSV(w, res.Customers)
	},
	XLSX: WriteXLSX,
}

// Write écrit base.<format> pour chaque format et renvoie les chemins créés.
// Tous les formats sont d'abord écrits dans des temporaires ; les renommages
// n'ont lieu que si tous ont réussi. En cas d'échec aucun fichier ne reste.
func Write(res models.Result, base string, formats []Format) (paths []string, err error) {
	staged := make([]string, 0, len(formats))
	defer func() {
		if err != nil {
			for _, tmp := range staged {
				os.Remove(tmp)
			}
			for _, p := range paths {
				os.Remove(p)
			}
			paths = nil
		}
	}()

	targets := make([]string, 0, len(formats))
	for _, f := range formats {
		path := base + "." + string(f)
		write, ok := writers[f]
		if !ok {
			return nil, fmt.Errorf("%s: format inconnu %q", path, f)
		}
		tmp, err := stage(path, func(w io.Writer) error { return write(w, res) })
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		staged = append(staged, tmp)
		targets = append(targets, path)
	}

	for i, tmp := range staged {
		if err := os.Rename(tmp, targets[i]); err != nil {
			return paths, fmt.Errorf("%s: %w", targets[i], err)
		}
		paths = append(paths, targets[i])
	}
	staged = nil
	return paths, nil
}

// TimestampedBase ajoute l'horodatage au nom : results/segments_20240630_120000.
func TimestampedBase(base string, now time.Time) string {
	return fmt.Sprintf("%s_%s", base, now.Format("20060102_150405"))
}

func writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := stage(path, write)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// stage écrit dans un temporaire à côté de path et renvoie son nom. En cas
// d'erreur le temporaire est supprimé.
func stage(path string, write func(io.Writer) error) (name string, err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create folder: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return "", err
	}
	if err = tmp.Sync(); err != nil {
		return "", err
	}
	if err = tmp.Close(); err != nil {
		return "", err
	}
	return tmp.Name(), nil
}
