package streamgen

import (
	"context"
	"io/ioutil"
	"net/http"

	"github.com/pkg/errors"
)

// RemoteProfile fetches generator Config from a profile server.
type RemoteProfile struct {
	url    string
	client *http.Client
}

// NewRemoteProfile creates new remote profile instance.
func NewRemoteProfile(url string) *RemoteProfile {
	return &RemoteProfile{
		url:    url,
		client: http.DefaultClient,
	}
}

// Fetch retrieves profile and unpacks it over base.
func (rp *RemoteProfile) Fetch(ctx context.Context, base Config) (Config, error) {
	r, err := http.NewRequest("GET", rp.url, nil)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to create request")
	}

	res, err := rp.client.Do(r.WithContext(ctx))
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to fetch profile")
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return Config{}, errors.Errorf("unexpected profile status: %s", res.Status)
	}

	body, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read profile")
	}

	return ParseConfig(body, base)
}
