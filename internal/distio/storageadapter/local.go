package storageadapter

import (
	"context"
	"strings"
)

// Local is the no-op adapter: the configured base_url already serves files
// straight off the disk the Scanner walked, so upload/delete do nothing and
// get_url is pure string concatenation.
type Local struct {
	BaseURL string
}

// NewLocal builds a Local adapter rooted at baseURL (trailing slash
// optional).
func NewLocal(baseURL string) *Local {
	return &Local{BaseURL: strings.TrimSuffix(baseURL, "/")}
}

func (l *Local) Upload(_ context.Context, _ string, remoteKey string) (string, error) {
	return l.GetURL(remoteKey), nil
}

func (l *Local) Delete(_ context.Context, _ string) error {
	return nil
}

func (l *Local) GetURL(remoteKey string) string {
	return l.BaseURL + "/" + strings.TrimPrefix(remoteKey, "/")
}

func (l *Local) IsRemote() bool { return false }
