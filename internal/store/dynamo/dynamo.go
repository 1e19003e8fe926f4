// Package dynamo implements the store on DynamoDB.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/schoolmaps/drivelink/internal/model"
	"github.com/schoolmaps/drivelink/internal/store"
)

// OwnerIndex is the global secondary index on UploadedFiles keyed by owner_id.
const OwnerIndex = "owner_id-index"

// API is the subset of *dynamodb.Client used by Store.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Tables names the three tables.
type Tables struct {
	UserTokens    string
	DriveLinks    string
	UploadedFiles string
}

// Store implements store.Store.
type Store struct {
	client API
	tables Tables
}

var _ store.Store = (*Store)(nil)

func New(client API, tables Tables) *Store {
	return &Store{client: client, tables: tables}
}

func userKey(userID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"user_id": &types.AttributeValueMemberS{Value: userID},
	}
}

func (s *Store) getItem(ctx context.Context, table string, key map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(table),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item from %s: %w", table, err)
	}
	return out.Item, nil
}

func (s *Store) GetLinkState(ctx context.Context, userID string) (*model.LinkState, error) {
	tokItem, err := s.getItem(ctx, s.tables.UserTokens, userKey(userID))
	if err != nil {
		return nil, err
	}
	linkItem, err := s.getItem(ctx, s.tables.DriveLinks, userKey(userID))
	if err != nil {
		return nil, err
	}
	if tokItem == nil && linkItem == nil {
		return nil, store.ErrNotFound
	}

	var tok model.UserToken
	var link model.DriveLink
	if err := attributevalue.UnmarshalMap(tokItem, &tok); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user token: %w", err)
	}
	if err := attributevalue.UnmarshalMap(linkItem, &link); err != nil {
		return nil, fmt.Errorf("failed to unmarshal drive link: %w", err)
	}

	return &model.LinkState{
		UserID:       userID,
		RefreshToken: tok.EncryptedRefreshToken,
		Linked:       link.Linked,
		LastLinkedAt: link.LastLinkedAt,
	}, nil
}

// SaveLink updates both user documents in one transaction. UpdateItem with SET
// leaves every other attribute in place.
func (s *Store) SaveLink(ctx context.Context, userID, encryptedToken string, linkedAt time.Time) error {
	ts, err := attributevalue.Marshal(linkedAt.UTC())
	if err != nil {
		return err
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Update: &types.Update{
				TableName:        aws.String(s.tables.UserTokens),
				Key:              userKey(userID),
				UpdateExpression: aws.String("SET encrypted_refresh_token = :tok, updated_at = :now"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":tok": &types.AttributeValueMemberS{Value: encryptedToken},
					":now": ts,
				},
			}},
			{Update: &types.Update{
				TableName:        aws.String(s.tables.DriveLinks),
				Key:              userKey(userID),
				UpdateExpression: aws.String("SET linked = :linked, last_linked_at = :now"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":linked": &types.AttributeValueMemberBOOL{Value: true},
					":now":    ts,
				},
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to save drive link: %w", err)
	}
	return nil
}

// ClearLink removes the token and lowers the flag. Both updates are conditional
// on the documents existing, so a user that was never linked gets no record.
// When only one of the documents exists the other update is dropped and the
// transaction is retried.
func (s *Store) ClearLink(ctx context.Context, userID string) error {
	ts, err := attributevalue.Marshal(time.Now().UTC())
	if err != nil {
		return err
	}

	items := []types.TransactWriteItem{
		{Update: &types.Update{
			TableName:                 aws.String(s.tables.UserTokens),
			Key:                       userKey(userID),
			UpdateExpression:          aws.String("REMOVE encrypted_refresh_token SET updated_at = :now"),
			ConditionExpression:       aws.String("attribute_exists(user_id)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{":now": ts},
		}},
		{Update: &types.Update{
			TableName:           aws.String(s.tables.DriveLinks),
			Key:                 userKey(userID),
			UpdateExpression:    aws.String("SET linked = :linked"),
			ConditionExpression: aws.String("attribute_exists(user_id)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":linked": &types.AttributeValueMemberBOOL{Value: false},
			},
		}},
	}

	for attempt := 0; attempt < 2 && len(items) > 0; attempt++ {
		_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
		if err == nil {
			return nil
		}
		remaining, ok := existingDocuments(err, items)
		if !ok {
			return fmt.Errorf("failed to clear drive link: %w", err)
		}
		items = remaining
	}
	if len(items) > 0 {
		return fmt.Errorf("failed to clear drive link: %w", err)
	}
	return nil
}

// existingDocuments inspects a cancelled transaction and returns the items
// whose documents exist. ok is false when anything other than a missing
// document cancelled it.
func existingDocuments(err error, items []types.TransactWriteItem) (remaining []types.TransactWriteItem, ok bool) {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) || len(tce.CancellationReasons) != len(items) {
		return nil, false
	}
	for i, r := range tce.CancellationReasons {
		switch aws.ToString(r.Code) {
		case "ConditionalCheckFailed":
		case "None", "":
			remaining = append(remaining, items[i])
		default:
			return nil, false
		}
	}
	return remaining, true
}

func fileKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id},
	}
}

func (s *Store) PutFileRecord(ctx context.Context, rec *model.UploadedFileRecord) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal file record: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tables.UploadedFiles),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save file record: %w", err)
	}
	return nil
}

func (s *Store) GetFileRecord(ctx context.Context, id string) (*model.UploadedFileRecord, error) {
	item, err := s.getItem(ctx, s.tables.UploadedFiles, fileKey(id))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, store.ErrNotFound
	}
	var rec model.UploadedFileRecord
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal file record: %w", err)
	}
	return &rec, nil
}

func (s *Store) DeleteFileRecord(ctx context.Context, id string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tables.UploadedFiles),
		Key:       fileKey(id),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file record: %w", err)
	}
	return nil
}

func (s *Store) ListFileRecords(ctx context.Context, ownerID string) ([]model.UploadedFileRecord, error) {
	out := []model.UploadedFileRecord{}
	var startKey map[string]types.AttributeValue
	for {
		page, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.tables.UploadedFiles),
			IndexName:              aws.String(OwnerIndex),
			KeyConditionExpression: aws.String("owner_id = :owner"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":owner": &types.AttributeValueMemberS{Value: ownerID},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query file records: %w", err)
		}

		var recs []model.UploadedFileRecord
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &recs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal file records: %w", err)
		}
		out = append(out, recs...)

		if len(page.LastEvaluatedKey) == 0 {
			break
		}
		startKey = page.LastEvaluatedKey
	}
	store.SortNewestFirst(out)
	return out, nil
}
