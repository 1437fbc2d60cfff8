package entity

import (
	"time"

	"pagebot-core-console/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoCommandDoc represents an audited page command in MongoDB
type MongoCommandDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	CommandID  string             `bson:"commandId"`
	Command    string             `bson:"command"`
	PageID     string             `bson:"pageId"`
	UserID     string             `bson:"userId"`
	Succeeded  bool               `bson:"succeeded"`
	ErrorKind  string             `bson:"errorKind,omitempty"`
	Error      string             `bson:"error,omitempty"`
	DurationMs int64              `bson:"durationMs"`
	OccurredAt time.Time          `bson:"occurredAt"`
	CreatedAt  time.Time          `bson:"createdAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoCommandDoc) ToDomain() *domain.CommandRecord {
	return &domain.CommandRecord{
		ID:         d.ID.Hex(),
		CommandID:  d.CommandID,
		Command:    domain.CommandName(d.Command),
		PageID:     d.PageID,
		UserID:     d.UserID,
		Succeeded:  d.Succeeded,
		ErrorKind:  domain.ErrorKind(d.ErrorKind),
		Error:      d.Error,
		Duration:   time.Duration(d.DurationMs) * time.Millisecond,
		OccurredAt: d.OccurredAt,
	}
}

// MongoCommandDocFromDomain converts a domain entity to a MongoDB document
func MongoCommandDocFromDomain(record *domain.CommandRecord) *MongoCommandDoc {
	doc := &MongoCommandDoc{
		CommandID:  record.CommandID,
		Command:    string(record.Command),
		PageID:     record.PageID,
		UserID:     record.UserID,
		Succeeded:  record.Succeeded,
		ErrorKind:  string(record.ErrorKind),
		Error:      record.Error,
		DurationMs: record.Duration.Milliseconds(),
		OccurredAt: record.OccurredAt,
	}

	if record.ID != "" {
		if objID, err := primitive.ObjectIDFromHex(record.ID); err == nil {
			doc.ID = objID
		}
	}

	return doc
}
