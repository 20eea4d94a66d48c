package providers

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	nverrors "github.com/systmms/noctivault/internal/errors"
	"github.com/systmms/noctivault/internal/logging"
	"github.com/systmms/noctivault/internal/metrics"
	"github.com/systmms/noctivault/pkg/provider"
)

// Internal retry ceilings. Not user-configurable.
var (
	notFoundRetryDelay = 200 * time.Millisecond
	serverErrorBackoff = []time.Duration{200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond}
	rateLimitBackoff   = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
)

// remoteAPI is the subset of the Secret Manager client the provider uses.
type remoteAPI interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error)
}

type remoteClient struct {
	c *secretmanager.Client
}

func (r remoteClient) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	return r.c.AccessSecretVersion(ctx, req)
}

// RemoteOptions configures the remote provider.
type RemoteOptions struct {
	// CredentialsFile optionally points at a service account key file.
	// When empty, application default credentials apply.
	CredentialsFile string
}

// Remote fetches secret values from Google Secret Manager, mapping client
// outcomes to the canonical error kinds and applying a bounded internal
// retry policy: a single delayed retry for not-found (eventual
// consistency), capped exponential backoff for server errors, and
// hint-honoring backoff for rate limits. All other failures are final on
// the first attempt.
type Remote struct {
	api    remoteAPI
	logger *logging.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRemote creates a provider backed by a real Secret Manager client.
func NewRemote(ctx context.Context, logger *logging.Logger, opts RemoteOptions) (*Remote, error) {
	var clientOptions []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(opts.CredentialsFile))
	}
	client, err := secretmanager.NewClient(ctx, clientOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}
	return newRemote(remoteClient{c: client}, logger), nil
}

func newRemote(api remoteAPI, logger *logging.Logger) *Remote {
	if logger == nil {
		logger = logging.New(false, false)
	}
	return &Remote{api: api, logger: logger, sleep: sleepContext}
}

// Fetch implements provider.Fetcher.
func (r *Remote) Fetch(ctx context.Context, ref provider.Ref) (string, error) {
	if !ref.Platform.Valid() {
		metrics.RecordFetch("argument")
		return "", nverrors.RemoteArgumentError{
			Message: fmt.Sprintf("unsupported platform '%s'", ref.Platform),
		}
	}

	resource := fmt.Sprintf("projects/%s/secrets/%s/versions/%s", ref.Project, ref.Name, ref.Version)
	r.logger.Debug("accessing remote secret: %s", logging.Secret(resource))

	notFoundRetried := false
	serverRetries := 0
	rateLimitRetries := 0

	for {
		resp, err := r.api.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
			Name: resource,
		})
		if err == nil {
			return r.decodePayload(ref, resp)
		}

		st := status.Convert(err)
		var delay time.Duration
		var reason string

		switch st.Code() {
		case codes.NotFound:
			if notFoundRetried {
				metrics.RecordFetch("not_found")
				return "", nverrors.MissingRemoteSecretError{
					Project: ref.Project,
					Name:    ref.Name,
					Version: ref.Version.String(),
				}
			}
			notFoundRetried = true
			delay, reason = notFoundRetryDelay, "not_found"

		case codes.PermissionDenied, codes.Unauthenticated:
			metrics.RecordFetch("auth")
			return "", nverrors.AuthorizationError{Message: st.Message(), Err: err}

		case codes.InvalidArgument:
			metrics.RecordFetch("argument")
			return "", nverrors.RemoteArgumentError{Message: st.Message()}

		case codes.ResourceExhausted:
			if rateLimitRetries >= len(rateLimitBackoff) {
				metrics.RecordFetch("unavailable")
				return "", nverrors.RemoteUnavailableError{Message: "rate limited: " + st.Message(), Err: err}
			}
			delay = retryHint(st)
			if delay == 0 {
				delay = rateLimitBackoff[rateLimitRetries]
			}
			rateLimitRetries++
			reason = "rate_limit"

		case codes.Unavailable, codes.DeadlineExceeded, codes.Internal, codes.Aborted:
			if serverRetries >= len(serverErrorBackoff) {
				metrics.RecordFetch("unavailable")
				return "", nverrors.RemoteUnavailableError{Message: st.Message(), Err: err}
			}
			delay = serverErrorBackoff[serverRetries]
			serverRetries++
			reason = "server_error"

		case codes.Canceled:
			metrics.RecordFetch("unavailable")
			return "", nverrors.RemoteUnavailableError{Message: "fetch cancelled", Err: err}

		default:
			metrics.RecordFetch("unavailable")
			return "", nverrors.RemoteUnavailableError{Message: st.Message(), Err: err}
		}

		metrics.RecordRetry(reason)
		r.logger.Debug("retrying %s/%s after %s (%s)", ref.Project, ref.Name, delay, reason)
		if err := r.sleep(ctx, delay); err != nil {
			metrics.RecordFetch("unavailable")
			return "", nverrors.RemoteUnavailableError{Message: "fetch cancelled", Err: err}
		}
	}
}

func (r *Remote) decodePayload(ref provider.Ref, resp *secretmanagerpb.AccessSecretVersionResponse) (string, error) {
	if resp.GetPayload() == nil || resp.GetPayload().GetData() == nil {
		metrics.RecordFetch("not_found")
		return "", nverrors.MissingRemoteSecretError{
			Project: ref.Project,
			Name:    ref.Name,
			Version: ref.Version.String(),
		}
	}
	data := resp.GetPayload().GetData()
	if !utf8.Valid(data) {
		metrics.RecordFetch("decode")
		return "", nverrors.RemoteDecodeError{Project: ref.Project, Name: ref.Name}
	}
	metrics.RecordFetch("ok")
	return string(data), nil
}

// retryHint extracts a server-provided retry delay from the status
// details, if any.
func retryHint(st *status.Status) time.Duration {
	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.RetryInfo); ok {
			return info.GetRetryDelay().AsDuration()
		}
	}
	return 0
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
