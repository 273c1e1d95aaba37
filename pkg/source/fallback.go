// SPDX-License-Identifier: MPL-2.0

package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/invowk/modfs/pkg/installer"
	"github.com/invowk/modfs/pkg/vfs"
)

// Fallback tries each source in order. A source failing with ErrNotFound
// passes the request to the next one; any other error stops the chain.
func Fallback(sources ...installer.Fetcher) installer.Fetcher {
	return installer.FetchFunc(func(ctx context.Context, name, constraint string) (*vfs.FileSystem, error) {
		if len(sources) == 0 {
			return nil, fmt.Errorf("%w: %s@%s: no sources configured", ErrNotFound, name, constraint)
		}
		var errs []error
		for _, src := range sources {
			fsys, err := src.Fetch(ctx, name, constraint)
			if err == nil {
				return fsys, nil
			}
			if !errors.Is(err, ErrNotFound) {
				return nil, err
			}
			errs = append(errs, err)
		}
		return nil, errors.Join(errs...)
	})
}
