package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/reelai/backend/internal/db/models"
)

// DynamoAPI is the subset of the DynamoDB client the store uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Dynamo is a Store on two DynamoDB tables keyed by "id".
type Dynamo struct {
	client           DynamoAPI
	videosTable      string
	transcriptsTable string
	now              func() time.Time
}

func NewDynamo(ctx context.Context, region, videosTable, transcriptsTable string) (*Dynamo, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewDynamoWithClient(dynamodb.NewFromConfig(cfg), videosTable, transcriptsTable), nil
}

func NewDynamoWithClient(client DynamoAPI, videosTable, transcriptsTable string) *Dynamo {
	return &Dynamo{
		client:           client,
		videosTable:      videosTable,
		transcriptsTable: transcriptsTable,
		now:              time.Now,
	}
}

func idKey(id string) map[string]dynamodbtypes.AttributeValue {
	return map[string]dynamodbtypes.AttributeValue{
		"id": &dynamodbtypes.AttributeValueMemberS{Value: id},
	}
}

func (d *Dynamo) GetVideo(ctx context.Context, id string) (*models.Video, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.videosTable),
		Key:       idKey(id),
	})
	if err != nil {
		return nil, fmt.Errorf("get video %s: %w", id, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	return &models.Video{ID: id, VideoURL: stringAttr(out.Item, "videoUrl")}, nil
}

func (d *Dynamo) GetTranscript(ctx context.Context, videoID string) (*models.Transcript, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.transcriptsTable),
		Key:            idKey(videoID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get transcript %s: %w", videoID, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}

	item := out.Item
	t := &models.Transcript{
		VideoID:       videoID,
		Content:       stringAttr(item, "content"),
		Status:        models.TranscriptStatus(stringAttr(item, "status")),
		Error:         stringAttr(item, "error"),
		Language:      stringAttr(item, "language"),
		AudioSize:     numberAttr(item, "audioSize"),
		ContentLength: int(numberAttr(item, "contentLength")),
		SegmentCount:  int(numberAttr(item, "segmentCount")),
	}
	if raw := stringAttr(item, "segments"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &t.Segments); err != nil {
			return nil, fmt.Errorf("decode segments of %s: %w", videoID, err)
		}
	}
	if ts := stringAttr(item, "createdAt"); ts != "" {
		if t.CreatedAt, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("decode createdAt of %s: %w", videoID, err)
		}
	}
	return t, nil
}

func (d *Dynamo) SaveTranscript(ctx context.Context, t *models.Transcript) error {
	segments := t.Segments
	if segments == nil {
		segments = []models.Segment{}
	}
	segJSON, err := json.Marshal(segments)
	if err != nil {
		return err
	}
	createdAt := d.now().UTC()

	item := map[string]dynamodbtypes.AttributeValue{
		"id":            &dynamodbtypes.AttributeValueMemberS{Value: t.VideoID},
		"videoId":       &dynamodbtypes.AttributeValueMemberS{Value: t.VideoID},
		"content":       &dynamodbtypes.AttributeValueMemberS{Value: t.Content},
		"segments":      &dynamodbtypes.AttributeValueMemberS{Value: string(segJSON)},
		"status":        &dynamodbtypes.AttributeValueMemberS{Value: string(t.Status)},
		"audioSize":     &dynamodbtypes.AttributeValueMemberN{Value: strconv.FormatInt(t.AudioSize, 10)},
		"contentLength": &dynamodbtypes.AttributeValueMemberN{Value: strconv.Itoa(t.ContentLength)},
		"segmentCount":  &dynamodbtypes.AttributeValueMemberN{Value: strconv.Itoa(t.SegmentCount)},
		"createdAt":     &dynamodbtypes.AttributeValueMemberS{Value: createdAt.Format(time.RFC3339Nano)},
	}
	if t.Error != "" {
		item["error"] = &dynamodbtypes.AttributeValueMemberS{Value: t.Error}
	}
	if t.Language != "" {
		item["language"] = &dynamodbtypes.AttributeValueMemberS{Value: t.Language}
	}

	if _, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.transcriptsTable),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put transcript %s: %w", t.VideoID, err)
	}
	t.CreatedAt = createdAt
	return nil
}

func (d *Dynamo) Close() error { return nil }

func stringAttr(item map[string]dynamodbtypes.AttributeValue, name string) string {
	if v, ok := item[name].(*dynamodbtypes.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func numberAttr(item map[string]dynamodbtypes.AttributeValue, name string) int64 {
	if v, ok := item[name].(*dynamodbtypes.AttributeValueMemberN); ok {
		n, _ := strconv.ParseInt(v.Value, 10, 64)
		return n
	}
	return 0
}
