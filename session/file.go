package session

import (
	"os"

	"github.com/tocurd/go-bsl/bslerr"
)

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &bslerr.FailedOpen{Path: path, Err: err}
	}
	return data, nil
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &bslerr.FailedCreate{Path: path, Err: err}
	}
	return nil
}
