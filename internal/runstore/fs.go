package runstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"n8n-snap/internal/model"
)

// ReportFileName is the durable status report written at run finalization.
// In-place runs put it in the input folder, otherwise it lands next to the
// rendered images in the output folder.
const ReportFileName = "n8n-snap-job.json"

func Mkdir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

func WriteBytes(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create parent for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".n8nsnap-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file for %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("chmod temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("atomic rename for %s: %w", path, err)
	}
	return nil
}

func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON for %s: %w", path, err)
	}
	data = append(data, '\n')
	return WriteBytes(path, data)
}

func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse JSON %s: %w", path, err)
	}
	return nil
}

func ReportPath(dir string) string {
	return filepath.Join(dir, ReportFileName)
}

// LoadReport reads a previously persisted status report. A missing file is
// not an error; it returns an empty report and found=false.
func LoadReport(dir string) (model.StatusReport, bool, error) {
	path := ReportPath(dir)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return model.StatusReport{}, false, nil
		}
		return model.StatusReport{}, false, fmt.Errorf("stat report %s: %w", path, err)
	}
	var report model.StatusReport
	if err := ReadJSON(path, &report); err != nil {
		return model.StatusReport{}, false, err
	}
	return report, true, nil
}

func SaveReport(dir string, report model.StatusReport) error {
	return WriteJSON(ReportPath(dir), report)
}
