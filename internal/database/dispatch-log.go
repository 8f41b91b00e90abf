package repository

import (
	"context"
	"fmt"

	"LeadDesk/entity"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (m *MongoDB) SaveDispatch(ctx context.Context, record entity.DispatchRecord) error {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(dispatchLogCollection)
	if _, err = collection.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("mongodb insert dispatch: %w", err)
	}
	return nil
}

// DispatchHistory returns the latest attempts for a conversation, newest first.
func (m *MongoDB) DispatchHistory(ctx context.Context, sessionID string, limit int64) ([]entity.DispatchRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()

	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(dispatchLogCollection)
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := collection.Find(ctx, bson.D{{Key: "session_id", Value: sessionID}}, opts)
	if err != nil {
		return nil, m.findError(err)
	}
	defer cursor.Close(ctx)

	records := make([]entity.DispatchRecord, 0)
	if err = cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("mongodb decode dispatches: %w", err)
	}
	return records, nil
}
