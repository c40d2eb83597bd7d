package outbound

import "github.com/tmansmann0/PhoneLeadResponseAutomator/domain"

// AudioSpoolPort stages synthesized audio on local disk before upload.
// Stage must never leave a partially written file at the returned path.
type AudioSpoolPort interface {
	Stage(asset domain.AudioAsset, key string) (string, error)
	Remove(path string) error
}
