package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"LeadDesk/entity"
	"LeadDesk/internal/lib/sl"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (m *MongoDB) bucket(connection *mongo.Client) (*gridfs.Bucket, error) {
	bucket, err := gridfs.NewBucket(connection.Database(m.database), options.GridFSBucket().SetName(imageBucket))
	if err != nil {
		return nil, fmt.Errorf("gridfs bucket: %w", err)
	}
	return bucket, nil
}

// UploadFile stores a file in GridFS and returns the generated file ID and size.
func (m *MongoDB) UploadFile(ctx context.Context, filename string, reader io.Reader, meta entity.FileMetadata) (string, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	connection, err := m.connect(ctx)
	if err != nil {
		return "", 0, err
	}
	defer m.disconnect(connection)

	bucket, err := m.bucket(connection)
	if err != nil {
		return "", 0, err
	}

	uploadStream, err := bucket.OpenUploadStream(filename, options.GridFSUpload().SetMetadata(meta))
	if err != nil {
		return "", 0, fmt.Errorf("gridfs open upload: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = uploadStream.SetWriteDeadline(deadline)
	}

	size, err := io.Copy(uploadStream, reader)
	if err != nil {
		_ = uploadStream.Abort()
		return "", 0, fmt.Errorf("gridfs copy: %w", err)
	}
	if err = uploadStream.Close(); err != nil {
		return "", 0, fmt.Errorf("gridfs close upload: %w", err)
	}

	fileID, ok := uploadStream.FileID.(primitive.ObjectID)
	if !ok {
		return "", 0, fmt.Errorf("gridfs unexpected file id %v", uploadStream.FileID)
	}
	return fileID.Hex(), size, nil
}

// gridfsReadCloser wraps a GridFS download stream and disconnects
// the MongoDB client when closed.
type gridfsReadCloser struct {
	stream     *gridfs.DownloadStream
	disconnect func()
}

func (r *gridfsReadCloser) Read(p []byte) (int, error) {
	return r.stream.Read(p)
}

func (r *gridfsReadCloser) Close() error {
	err := r.stream.Close()
	r.disconnect()
	return err
}

// DownloadFile opens an archived file by its ID. The caller must close the
// returned reader to release the connection.
func (m *MongoDB) DownloadFile(ctx context.Context, id string) (string, entity.FileMetadata, io.ReadCloser, error) {
	fileID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return "", entity.FileMetadata{}, nil, fmt.Errorf("file %q: %w", id, entity.ErrNotFound)
	}

	connection, err := m.connect(ctx)
	if err != nil {
		return "", entity.FileMetadata{}, nil, err
	}

	bucket, err := m.bucket(connection)
	if err != nil {
		m.disconnect(connection)
		return "", entity.FileMetadata{}, nil, err
	}

	stream, err := bucket.OpenDownloadStream(fileID)
	if err != nil {
		m.disconnect(connection)
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return "", entity.FileMetadata{}, nil, fmt.Errorf("file %s: %w", id, entity.ErrNotFound)
		}
		return "", entity.FileMetadata{}, nil, fmt.Errorf("gridfs open download: %w", err)
	}

	file := stream.GetFile()

	var meta entity.FileMetadata
	if len(file.Metadata) > 0 {
		if err = bson.Unmarshal(file.Metadata, &meta); err != nil {
			m.log.With(sl.Err(err), slog.String("file_id", id)).Warn("unmarshal gridfs metadata")
		}
	}

	reader := &gridfsReadCloser{
		stream:     stream,
		disconnect: func() { m.disconnect(connection) },
	}
	return file.Name, meta, reader, nil
}
