package session

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"babygpt/internal/domain"
)

type mockDynamoAPI struct {
	getOut    *dynamodb.GetItemOutput
	getErr    error
	putIn     *dynamodb.PutItemInput
	putErr    error
	deleteIn  *dynamodb.DeleteItemInput
	deleteErr error
}

func (m *mockDynamoAPI) GetItem(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return m.getOut, m.getErr
}

func (m *mockDynamoAPI) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.putIn = in
	return &dynamodb.PutItemOutput{}, m.putErr
}

func (m *mockDynamoAPI) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	m.deleteIn = in
	return &dynamodb.DeleteItemOutput{}, m.deleteErr
}

func TestDynamoStore_GetMissing(t *testing.T) {
	store := newDynamoStore(&mockDynamoAPI{getOut: &dynamodb.GetItemOutput{}}, "sessions")
	sess, err := store.Get(context.Background(), "12345")
	require.NoError(t, err)
	require.Nil(t, sess)
}

func TestDynamoStore_GetDecodesSession(t *testing.T) {
	api := &mockDynamoAPI{getOut: &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
		"PK":             &types.AttributeValueMemberS{Value: "CHAT#12345"},
		"SK":             &types.AttributeValueMemberS{Value: skSession},
		"conversationId": &types.AttributeValueMemberS{Value: "12345"},
		"activeFlow":     &types.AttributeValueMemberS{Value: "nutrition"},
		"turnCount":      &types.AttributeValueMemberN{Value: "3"},
	}}}
	store := newDynamoStore(api, "sessions")

	sess, err := store.Get(context.Background(), "12345")
	require.NoError(t, err)
	require.NotNil(t, sess)
	require.Equal(t, "12345", sess.ConversationID)
	require.Equal(t, domain.FlowNutrition, sess.ActiveFlow)
	require.Equal(t, 3, sess.TurnCount)
}

func TestDynamoStore_GetError(t *testing.T) {
	store := newDynamoStore(&mockDynamoAPI{getErr: errors.New("throttled")}, "sessions")
	_, err := store.Get(context.Background(), "12345")
	require.Error(t, err)
}

func TestDynamoStore_SetWritesAllAttributes(t *testing.T) {
	api := &mockDynamoAPI{}
	store := newDynamoStore(api, "sessions")

	err := store.Set(context.Background(), &domain.Session{
		ConversationID: "12345",
		ActiveFlow:     domain.FlowCaregiver,
		TurnCount:      1,
	})
	require.NoError(t, err)
	require.NotNil(t, api.putIn)
	require.Equal(t, "sessions", *api.putIn.TableName)

	pk := api.putIn.Item["PK"].(*types.AttributeValueMemberS)
	require.Equal(t, "CHAT#12345", pk.Value)
	flow := api.putIn.Item["activeFlow"].(*types.AttributeValueMemberS)
	require.Equal(t, "caregiver", flow.Value)
	turns := api.putIn.Item["turnCount"].(*types.AttributeValueMemberN)
	require.Equal(t, "1", turns.Value)
	require.Contains(t, api.putIn.Item, "ttl")
}

func TestDynamoStore_Delete(t *testing.T) {
	api := &mockDynamoAPI{}
	store := newDynamoStore(api, "sessions")

	require.NoError(t, store.Delete(context.Background(), "12345"))
	require.NotNil(t, api.deleteIn)
	pk := api.deleteIn.Key["PK"].(*types.AttributeValueMemberS)
	require.Equal(t, "CHAT#12345", pk.Value)
}
