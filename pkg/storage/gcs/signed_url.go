package gcs

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const storageHost = "https://storage.googleapis.com"

var errSignerUnavailable = errors.New("signed urls require service account credentials")

// SignedURL returns a V2 signed PUT URL for uploading an object with the
// given content type.
func (c *Client) SignedURL(bucket, object, contentType string, expires time.Duration) (string, error) {
	if contentType == "" {
		return "", errors.New("content type is required")
	}
	resource, expiresAt, err := c.signingInputs(bucket, object, expires)
	if err != nil {
		return "", err
	}

	payload := strings.Join([]string{http.MethodPut, "", contentType, strconv.FormatInt(expiresAt, 10), resource}, "\n")
	signature, err := c.signPayload(payload)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("GoogleAccessId", url.QueryEscape(c.serviceAccount.clientEmail))
	q.Set("Expires", strconv.FormatInt(expiresAt, 10))
	q.Set("Signature", url.QueryEscape(signature))

	return storageHost + resource + "?" + q.Encode(), nil
}

// SignedReadURL returns a V2 signed GET URL for downloading an object.
func (c *Client) SignedReadURL(bucket, object string, expires time.Duration) (string, error) {
	resource, expiresAt, err := c.signingInputs(bucket, object, expires)
	if err != nil {
		return "", err
	}

	payload := strings.Join([]string{http.MethodGet, "", "", strconv.FormatInt(expiresAt, 10), resource}, "\n")
	signature, err := c.signPayload(payload)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%s?GoogleAccessId=%s&Expires=%d&Signature=%s",
		storageHost, resource, c.serviceAccount.clientEmail, expiresAt, signature), nil
}

// DeleteObject removes an object via the JSON API. A missing object is not
// an error so deletes stay idempotent.
func (c *Client) DeleteObject(ctx context.Context, bucket, object string) error {
	if c == nil || c.tokenSource == nil {
		return errors.New("gcs client not initialized")
	}
	if bucket == "" {
		bucket = c.defaultBucket
	}
	if bucket == "" {
		return errors.New("bucket is required")
	}
	if object == "" {
		return errors.New("object is required")
	}

	token, err := c.tokenSource.Token(ctx)
	if err != nil {
		return err
	}

	u := fmt.Sprintf("%s/storage/v1/b/%s/o/%s", storageHost, url.PathEscape(bucket), url.PathEscape(object))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("gcs delete failed: %s", resp.Status)
	}
	return nil
}

func (c *Client) signingInputs(bucket, object string, expires time.Duration) (string, int64, error) {
	if c == nil || c.serviceAccount == nil || c.serviceAccount.privateKey == nil {
		return "", 0, errSignerUnavailable
	}
	if bucket == "" {
		bucket = c.defaultBucket
	}
	if bucket == "" {
		return "", 0, errors.New("bucket is required")
	}
	if object == "" {
		return "", 0, errors.New("object is required")
	}
	if expires <= 0 {
		return "", 0, errors.New("expiry must be positive")
	}
	return "/" + bucket + "/" + object, time.Now().Add(expires).Unix(), nil
}

func (c *Client) signPayload(payload string) (string, error) {
	hash := sha256.Sum256([]byte(payload))
	signature, err := rsa.SignPKCS1v15(rand.Reader, c.serviceAccount.privateKey, crypto.SHA256, hash[:])
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(signature), nil
}
