// Package uploader pushes city snapshot files into the partitioned object
// storage layout. Transient storage failures are retried under the shared
// backoff policy with a counter independent from the fetch side; the local
// file is never deleted, so a failed city can be recovered by hand.
package uploader

import (
	"context"
	"errors"
	"time"

	"github.com/aws/smithy-go"

	"github.com/xde719/pandaflow/internal/domain"
	"github.com/xde719/pandaflow/internal/logger"
	"github.com/xde719/pandaflow/internal/retry"
	"github.com/xde719/pandaflow/internal/storage"
)

// Uploader uploads snapshot files with retry and acknowledgment checking.
type Uploader struct {
	store          storage.ObjectStore
	policy         retry.Policy
	attemptTimeout time.Duration
}

// New creates an uploader over the given store. Each upload attempt is
// bounded by attemptTimeout so a stalled backend fails the attempt instead
// of hanging the city job.
func New(store storage.ObjectStore, policy retry.Policy, attemptTimeout time.Duration) *Uploader {
	return &Uploader{store: store, policy: policy, attemptTimeout: attemptTimeout}
}

// Upload puts the local file at the partitioned key and returns the object
// key once the backend has acknowledged the write. A success response
// without an ETag is treated as unacknowledged and fails the upload.
func (u *Uploader) Upload(ctx context.Context, localPath string, key PartitionKey, runTS time.Time, ext, contentType string) (string, error) {
	objectKey := key.ObjectKey(runTS, ext)
	log := logger.FromContext(ctx).WithFields(logger.Fields{
		"object_key": objectKey,
	})

	_, err := retry.Do(ctx, u.policy, uploadRetryable, func(ctx context.Context) error {
		// A stalled backend surfaces as a deadline error here, which
		// classify maps to transient so the retry budget engages.
		if u.attemptTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, u.attemptTimeout)
			defer cancel()
		}
		etag, err := u.store.UploadFile(ctx, objectKey, localPath, contentType)
		if err != nil {
			uerr := classify(err)
			log.WithError(uerr).Warn("Upload attempt failed")
			return uerr
		}
		if etag == "" {
			return &domain.UploadError{Kind: domain.UploadUnacknowledged, Err: errors.New("backend returned no etag")}
		}
		log.WithField("etag", etag).Debug("Upload acknowledged")
		return nil
	})
	if err != nil {
		// An unacknowledged write may still have landed; a HEAD settles it.
		var uerr *domain.UploadError
		if errors.As(err, &uerr) && uerr.Kind == domain.UploadUnacknowledged {
			if ok, herr := u.store.Exists(ctx, objectKey); herr == nil && ok {
				log.Warn("Write acknowledged by probe after missing etag")
				return objectKey, nil
			}
		}
		return "", err
	}
	return objectKey, nil
}

// Permanent S3 error codes: retrying these wastes the budget.
var permanentCodes = map[string]bool{
	"AccessDenied":                 true,
	"InvalidAccessKeyId":           true,
	"SignatureDoesNotMatch":        true,
	"NoSuchBucket":                 true,
	"AllAccessDisabled":            true,
	"InvalidBucketName":            true,
	"MethodNotAllowed":             true,
	"EntityTooLarge":               true,
	"MalformedXML":                 true,
	"InvalidArgument":              true,
	"AuthorizationHeaderMalformed": true,
}

// classify maps a raw storage error to the upload taxonomy. Service errors
// with a known permanent code fail immediately; anything else (timeouts,
// connection errors, 5xx) is transient.
func classify(err error) *domain.UploadError {
	var uerr *domain.UploadError
	if errors.As(err, &uerr) {
		return uerr
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && permanentCodes[apiErr.ErrorCode()] {
		return &domain.UploadError{Kind: domain.UploadPermanent, Err: err}
	}
	return &domain.UploadError{Kind: domain.UploadTransient, Err: err}
}

func uploadRetryable(err error) bool {
	var uerr *domain.UploadError
	if errors.As(err, &uerr) {
		return uerr.Retryable()
	}
	return false
}
