// Copyright (c) 2020 MinIO Inc. All rights reserved.
// Use of this source code is governed by a license that can be
// found in the LICENSE file.

package hwhash

import (
	"context"

	"github.com/pkg/errors"
	"github.com/remeh/sizedwaitgroup"
)

// DigestMany digests every list in srcs. At most BatchConcurrency
// requests are outstanding at once; the engine still runs them one at a
// time. The first error, in input order, is returned together with the
// digests computed so far.
func (t *Transform) DigestMany(ctx context.Context, srcs []ScatterList) ([][]byte, error) {
	sums := make([][]byte, len(srcs))
	errs := make([]error, len(srcs))

	swg := sizedwaitgroup.New(t.eng.cfg.BatchConcurrency)
	for i := range srcs {
		if err := swg.AddWithContext(ctx); err != nil {
			errs[i] = err
			break
		}
		go func(i int) {
			defer swg.Done()
			out := make([]byte, t.Size())
			if errs[i] = t.Digest(ctx, srcs[i], out); errs[i] == nil {
				sums[i] = out
			}
		}(i)
	}
	swg.Wait()

	for i, err := range errs {
		if err != nil {
			return sums, errors.Wrapf(err, "message %d", i)
		}
	}
	return sums, nil
}
