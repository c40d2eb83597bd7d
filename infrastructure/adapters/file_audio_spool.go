package adapters

import (
	"errors"
	"fmt"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/application/ports/outbound"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/domain"
	"os"
	"path/filepath"
)

type fileAudioSpool struct {
	logger outbound.LoggerPort
	dir    string
}

func NewFileAudioSpool(dir string, logger outbound.LoggerPort) outbound.AudioSpoolPort {
	return &fileAudioSpool{
		logger: logger,
		dir:    dir,
	}
}

// Stage writes the asset to a temp file in the spool directory and renames it
// into place once it is fully on disk.
func (s *fileAudioSpool) Stage(asset domain.AudioAsset, key string) (string, error) {
	name := filepath.Base(key)
	if name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid audio key %q", key)
	}
	if len(asset.Content) == 0 {
		return "", errors.New("refusing to stage empty audio")
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.logger.ErrorWithFields(err, "Failed to create the audio spool directory", map[string]interface{}{
			"dir": s.dir,
		})
		return "", err
	}

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		s.logger.ErrorWithFields(err, "Failed to create temp audio file", map[string]interface{}{
			"dir": s.dir,
		})
		return "", err
	}
	tmpName := tmp.Name()

	cleanup := func() {
		if err := os.Remove(tmpName); err != nil && !os.IsNotExist(err) {
			s.logger.ErrorWithFields(err, "Failed to remove temp audio file", map[string]interface{}{
				"path": tmpName,
			})
		}
	}

	if _, err := tmp.Write(asset.Content); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", err
	}

	finalPath := filepath.Join(s.dir, name)
	if err := os.Rename(tmpName, finalPath); err != nil {
		cleanup()
		return "", err
	}

	s.logger.DebugWithFields("Audio staged", map[string]interface{}{
		"path":  finalPath,
		"bytes": len(asset.Content),
	})
	return finalPath, nil
}

func (s *fileAudioSpool) Remove(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
