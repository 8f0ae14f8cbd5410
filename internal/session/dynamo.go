package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"babygpt/internal/domain"
)

const (
	skSession      = "SESSION#"
	dynamoTTL      = 30 * 24 * time.Hour // expire idle conversations after 30 days
	attrConvID     = "conversationId"
	attrActiveFlow = "activeFlow"
	attrTurnCount  = "turnCount"
	attrTTL        = "ttl"
)

// dynamoAPI is the minimal DynamoDB interface required by the driver.
// *dynamodb.Client from aws-sdk-go-v2 satisfies it.
type dynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// dynamoStore keeps one SESSION# item per conversation in a single table.
type dynamoStore struct {
	api       dynamoAPI
	tableName string
}

func newDynamoStore(api dynamoAPI, tableName string) *dynamoStore {
	return &dynamoStore{api: api, tableName: tableName}
}

func convPK(conversationID string) string {
	return "CHAT#" + conversationID
}

func ttlValue() int64 {
	return time.Now().Add(dynamoTTL).Unix()
}

func (s *dynamoStore) sessionKey(conversationID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: convPK(conversationID)},
		"SK": &types.AttributeValueMemberS{Value: skSession},
	}
}

func (s *dynamoStore) Get(ctx context.Context, conversationID string) (*domain.Session, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.sessionKey(conversationID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("session: dynamodb get: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return nil, nil
	}
	return itemToSession(out.Item)
}

func (s *dynamoStore) Set(ctx context.Context, sess *domain.Session) error {
	if sess == nil || sess.ConversationID == "" {
		return ErrInvalidConfig
	}
	_, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      sessionItem(sess),
	})
	if err != nil {
		return fmt.Errorf("session: dynamodb put: %w", err)
	}
	return nil
}

func (s *dynamoStore) Delete(ctx context.Context, conversationID string) error {
	_, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.sessionKey(conversationID),
	})
	if err != nil {
		return fmt.Errorf("session: dynamodb delete: %w", err)
	}
	return nil
}

func (s *dynamoStore) Close() error { return nil }

func sessionItem(sess *domain.Session) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":           &types.AttributeValueMemberS{Value: convPK(sess.ConversationID)},
		"SK":           &types.AttributeValueMemberS{Value: skSession},
		attrConvID:     &types.AttributeValueMemberS{Value: sess.ConversationID},
		attrActiveFlow: &types.AttributeValueMemberS{Value: string(sess.ActiveFlow)},
		attrTurnCount:  &types.AttributeValueMemberN{Value: strconv.Itoa(sess.TurnCount)},
		attrTTL:        &types.AttributeValueMemberN{Value: strconv.FormatInt(ttlValue(), 10)},
	}
}

func itemToSession(item map[string]types.AttributeValue) (*domain.Session, error) {
	convID, err := strAttr(item, attrConvID)
	if err != nil {
		return nil, fmt.Errorf("session: dynamodb decode: %w", err)
	}
	flowStr, _ := strAttr(item, attrActiveFlow) // allow empty
	turns := 0
	if _, ok := item[attrTurnCount]; ok {
		turns, err = intAttr(item, attrTurnCount)
		if err != nil {
			return nil, fmt.Errorf("session: dynamodb decode: %w", err)
		}
	}

	sess := &domain.Session{ConversationID: convID, TurnCount: turns}
	if flowStr != "" {
		if flow, ok := domain.ParseFlow(flowStr); ok && flow != domain.FlowEmergency {
			sess.ActiveFlow = flow
		}
	}
	return sess, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("attribute %q is not a string", key)
	}
	return s.Value, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("attribute %q is not a number", key)
	}
	parsed, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
