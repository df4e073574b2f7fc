// Package objectstore keeps users and todos as JSON documents in an
// S3-compatible bucket.
//
// Layout under the key prefix:
//
//	users/<id>.json
//	users/by-email/<email>        body: owning user id
//	users/by-username/<username>  body: owning user id
//	todos/<id>.json
//
// A user document is first written with "pending": true, then its markers
// are claimed, then the document is rewritten as final. Pending documents
// are invisible to reads. Marker objects are created with If-None-Match: *
// so the bucket itself rejects a second claim on an email or username.
package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/kilosha/todo-api/internal/repository"
)

// Client is the subset of the S3 API the store uses.
type Client interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

var _ Client = (*s3.Client)(nil)

// errPreconditionFailed reports a conditional write that lost.
var errPreconditionFailed = errors.New("precondition failed")

const (
	claimAttempts = 3
	// pendingTimeout bounds how long a registration that never finished
	// keeps its markers.
	pendingTimeout = time.Minute
)

type Store struct {
	client Client
	bucket string
	prefix string
	now    func() time.Time
}

func NewStore(client Client, bucket, keyPrefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(keyPrefix, "/"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Users() repository.UserRepository {
	return &UserRepository{store: s}
}

func (s *Store) Todos() repository.TodoRepository {
	return &TodoRepository{store: s}
}

// Init checks that the bucket exists and is reachable.
func (s *Store) Init(ctx context.Context) error {
	if s.bucket == "" {
		return fmt.Errorf("storage bucket is required")
	}
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("head bucket %s: %w", s.bucket, err)
	}
	return nil
}

func (s *Store) key(parts ...string) string {
	key := strings.Join(parts, "/")
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

func (s *Store) userKey(id string) string {
	return s.key("users", id+".json")
}

func (s *Store) todoKey(id string) string {
	return s.key("todos", id+".json")
}

func (s *Store) emailMarkerKey(email string) string {
	return s.key("users", "by-email", url.PathEscape(strings.ToLower(email)))
}

func (s *Store) usernameMarkerKey(username string) string {
	return s.key("users", "by-username", url.PathEscape(username))
}

// writeCondition guards a PutObject or DeleteObject. The zero value writes
// unconditionally.
type writeCondition struct {
	ifNoneMatch bool
	ifMatch     string
}

var createOnly = writeCondition{ifNoneMatch: true}

func ifMatch(etag string) writeCondition {
	return writeCondition{ifMatch: etag}
}

func (s *Store) getJSON(ctx context.Context, key string, v any) error {
	raw, err := s.get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) putJSON(ctx context.Context, key string, v any, cond writeCondition) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.put(ctx, key, raw, "application/json", cond)
}

func (s *Store) get(ctx context.Context, key string) ([]byte, error) {
	raw, _, err := s.getVersion(ctx, key)
	return raw, err
}

// getVersion returns the object body together with its ETag.
func (s *Store) getVersion(ctx context.Context, key string) ([]byte, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, "", repository.ErrNotFound
		}
		return nil, "", fmt.Errorf("get object %s: %w", key, err)
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read object %s: %w", key, err)
	}
	return raw, aws.ToString(out.ETag), nil
}

func (s *Store) put(ctx context.Context, key string, body []byte, contentType string, cond writeCondition) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPrivate,
	}
	if cond.ifNoneMatch {
		input.IfNoneMatch = aws.String("*")
	}
	if cond.ifMatch != "" {
		input.IfMatch = aws.String(cond.ifMatch)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		if isPreconditionFailed(err) || (cond.ifMatch != "" && isNotFound(err)) {
			return errPreconditionFailed
		}
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

func (s *Store) delete(ctx context.Context, key string) error {
	return s.deleteVersion(ctx, key, "")
}

// deleteVersion removes key. A non-empty etag restricts the delete to that
// version of the object.
func (s *Store) deleteVersion(ctx context.Context, key, etag string) error {
	input := &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if etag != "" {
		input.IfMatch = aws.String(etag)
	}
	if _, err := s.client.DeleteObject(ctx, input); err != nil {
		if isNotFound(err) {
			return nil
		}
		if isPreconditionFailed(err) {
			return errPreconditionFailed
		}
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// listDocuments returns the keys of the JSON documents directly under dir.
func (s *Store) listDocuments(ctx context.Context, dir string) ([]string, error) {
	prefix := s.key(dir) + "/"
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	var keys []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			rest := strings.TrimPrefix(key, prefix)
			if strings.Contains(rest, "/") || !strings.HasSuffix(rest, ".json") {
				continue
			}
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// claim writes a marker naming ownerID. A marker whose holder has no user
// document, or only a pending one older than pendingTimeout, is taken over
// with a write conditioned on the version that was read.
func (s *Store) claim(ctx context.Context, key, ownerID, field string) error {
	for range claimAttempts {
		err := s.put(ctx, key, []byte(ownerID), "text/plain", createOnly)
		if !errors.Is(err, errPreconditionFailed) {
			return err
		}

		current, etag, err := s.getVersion(ctx, key)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		holder := string(current)
		if holder == ownerID {
			return nil
		}
		abandoned, err := s.abandoned(ctx, holder)
		if err != nil {
			return err
		}
		if !abandoned {
			return &repository.DuplicateError{Field: field, Err: errPreconditionFailed}
		}

		err = s.put(ctx, key, []byte(ownerID), "text/plain", ifMatch(etag))
		if !errors.Is(err, errPreconditionFailed) {
			return err
		}
	}
	return &repository.DuplicateError{Field: field, Err: errPreconditionFailed}
}

// abandoned reports whether a marker held by userID may be reclaimed.
func (s *Store) abandoned(ctx context.Context, userID string) (bool, error) {
	var doc userDocument
	err := s.getJSON(ctx, s.userKey(userID), &doc)
	if errors.Is(err, repository.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return doc.Pending && s.now().Sub(doc.CreatedAt) > pendingTimeout, nil
}

// owns reports whether the marker at key still names ownerID.
func (s *Store) owns(ctx context.Context, key, ownerID string) (bool, error) {
	current, err := s.get(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return string(current) == ownerID, nil
}

// release deletes the marker at key only while it still names ownerID.
func (s *Store) release(ctx context.Context, key, ownerID string) error {
	current, etag, err := s.getVersion(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if string(current) != ownerID {
		return nil
	}
	if err := s.deleteVersion(ctx, key, etag); !errors.Is(err, errPreconditionFailed) {
		return err
	}
	return nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return true
		}
	}
	return false
}

func sortByCreation[T any](items []T, created func(T) time.Time, id func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		ci, cj := created(items[i]), created(items[j])
		if !ci.Equal(cj) {
			return ci.Before(cj)
		}
		return id(items[i]) < id(items[j])
	})
}
