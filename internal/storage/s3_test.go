package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileflow/internal/config"
)

func stubS3(t *testing.T) *string {
	t.Helper()
	origLoad, origNew := loadDefaultAWSConfig, newS3ClientFromConfig
	origPut, origGet := presignPutObject, presignGetObject
	origHead, origDelete := headObject, deleteObject
	t.Cleanup(func() {
		loadDefaultAWSConfig, newS3ClientFromConfig = origLoad, origNew
		presignPutObject, presignGetObject = origPut, origGet
		headObject, deleteObject = origHead, origDelete
	})

	var endpoint string
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "eu-west-1", lo.Region)
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var o s3.Options
		for _, fn := range optFns {
			fn(&o)
		}
		endpoint = aws.ToString(o.BaseEndpoint)
		return &s3.Client{}
	}
	return &endpoint
}

func newTestS3(t *testing.T) Storage {
	t.Helper()
	st, err := NewS3(context.Background(), config.S3Config{
		Region:    "eu-west-1",
		Bucket:    "fileflow",
		Endpoint:  "http://127.0.0.1:9000",
		AccessKey: "ak",
		SecretKey: "sk",
	})
	require.NoError(t, err)
	return st
}

func TestNewS3(t *testing.T) {
	endpoint := stubS3(t)
	newTestS3(t)
	assert.Equal(t, "http://127.0.0.1:9000", *endpoint)

	_, err := NewS3(context.Background(), config.S3Config{Region: "eu-west-1"})
	assert.Error(t, err)
}

func TestS3_Presign(t *testing.T) {
	stubS3(t)
	st := newTestS3(t)
	ctx := context.Background()

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		assert.Equal(t, "fileflow", aws.ToString(in.Bucket))
		assert.Equal(t, "users/a/files/h/x.pdf", aws.ToString(in.Key))
		assert.Equal(t, "application/pdf", aws.ToString(in.ContentType))
		var po s3.PresignOptions
		for _, fn := range optFns {
			fn(&po)
		}
		assert.Equal(t, 15*time.Minute, po.Expires)
		return &v4.PresignedHTTPRequest{URL: "https://s3/put"}, nil
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		assert.Equal(t, `attachment; filename="x.pdf"`, aws.ToString(in.ResponseContentDisposition))
		return nil, errors.New("signer down")
	}

	u, err := st.PresignUpload(ctx, "users/a/files/h/x.pdf", "application/pdf", 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://s3/put", u)

	_, err = st.PresignDownload(ctx, "users/a/files/h/x.pdf", "x.pdf", time.Minute)
	assert.ErrorContains(t, err, "presign get: signer down")
}

func TestS3_StatAndDelete(t *testing.T) {
	stubS3(t)
	st := newTestS3(t)
	ctx := context.Background()

	headObject = func(c *s3.Client, ctx context.Context, in *s3.HeadObjectInput) (*s3.HeadObjectOutput, error) {
		if aws.ToString(in.Key) == "missing" {
			return nil, &types.NotFound{}
		}
		return &s3.HeadObjectOutput{ContentLength: aws.Int64(42), ETag: aws.String(`"e"`)}, nil
	}
	var deleted string
	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput) (*s3.DeleteObjectOutput, error) {
		deleted = aws.ToString(in.Key)
		return &s3.DeleteObjectOutput{}, nil
	}

	_, err := st.Stat(ctx, "missing")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	info, err := st.Stat(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(42), info.Size)

	require.NoError(t, st.Delete(ctx, "k"))
	assert.Equal(t, "k", deleted)
}
