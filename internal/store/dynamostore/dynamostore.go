// Package dynamostore implements store.Backend on DynamoDB. Items and users
// live in two tables keyed by item_id and user_id. A user's favorites are a
// string set attribute on the user record, updated with ADD and DELETE
// expressions so concurrent updates never lose writes.
package dynamostore

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/erazemk/vodnik/internal/model"
	"github.com/erazemk/vodnik/internal/store"
)

// API is the subset of the DynamoDB client the store uses.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Options configures Open.
type Options struct {
	Region     string
	Endpoint   string // optional, e.g. http://localhost:8000 for DynamoDB Local
	ItemsTable string
	UsersTable string
}

type ddbItem struct {
	ItemID     string   `dynamodbav:"item_id"`
	Name       string   `dynamodbav:"name"`
	Address    string   `dynamodbav:"address"`
	URL        string   `dynamodbav:"url"`
	ImageURL   string   `dynamodbav:"image_url"`
	Rating     float64  `dynamodbav:"rating"`
	Distance   float64  `dynamodbav:"distance"`
	Categories []string `dynamodbav:"categories,stringset,omitempty"`
}

type ddbUser struct {
	UserID    string   `dynamodbav:"user_id"`
	FirstName string   `dynamodbav:"first_name"`
	LastName  string   `dynamodbav:"last_name"`
	Password  string   `dynamodbav:"password"`
	Favorite  []string `dynamodbav:"favorite,stringset,omitempty"`
}

// Store is a store.Backend over two DynamoDB tables.
type Store struct {
	client     API
	itemsTable string
	usersTable string
	closed     atomic.Bool
}

var _ store.Backend = (*Store)(nil)

// New returns a Store using the given items and users tables.
func New(client API, itemsTable, usersTable string) *Store {
	return &Store{client: client, itemsTable: itemsTable, usersTable: usersTable}
}

// Open builds a DynamoDB client from the default AWS configuration chain.
// When an endpoint override is given, static dummy credentials are used so
// DynamoDB Local works without an AWS profile.
func Open(ctx context.Context, opts Options) (*Store, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.Endpoint != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})
	return New(client, opts.ItemsTable, opts.UsersTable), nil
}

// EnsureTables creates the items and users tables when missing and waits
// for them to become active.
func (s *Store) EnsureTables(ctx context.Context) error {
	client, err := s.conn()
	if err != nil {
		return err
	}

	for _, t := range []struct{ name, key string }{
		{s.itemsTable, "item_id"},
		{s.usersTable, "user_id"},
	} {
		_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
			TableName: aws.String(t.name),
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String(t.key), AttributeType: types.ScalarAttributeTypeS},
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(t.key), KeyType: types.KeyTypeHash},
			},
			BillingMode: types.BillingModePayPerRequest,
		})
		var inUse *types.ResourceInUseException
		if err != nil && !errors.As(err, &inUse) {
			return fmt.Errorf("creating table %s: %w", t.name, err)
		}

		waiter := dynamodb.NewTableExistsWaiter(client)
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(t.name)}, 2*time.Minute); err != nil {
			return fmt.Errorf("waiting for table %s: %w", t.name, err)
		}
	}
	return nil
}

func (s *Store) conn() (API, error) {
	if s == nil || s.client == nil || s.closed.Load() {
		return nil, store.ErrUnavailable
	}
	return s.client, nil
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

func (s *Store) SaveItem(ctx context.Context, item model.Item) (bool, error) {
	client, err := s.conn()
	if err != nil {
		return false, err
	}
	if item.ItemID == "" {
		return false, fmt.Errorf("saving item: %w", store.ErrMissingID)
	}

	av, err := attributevalue.MarshalMap(ddbItem{
		ItemID:     item.ItemID,
		Name:       item.Name,
		Address:    item.Address,
		URL:        item.URL,
		ImageURL:   item.ImageURL,
		Rating:     item.Rating,
		Distance:   item.Distance,
		Categories: model.NormalizeSet(item.Categories),
	})
	if err != nil {
		return false, fmt.Errorf("marshaling item: %w", err)
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name("item_id"))).
		Build()
	if err != nil {
		return false, fmt.Errorf("building condition: %w", err)
	}

	_, err = client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(s.itemsTable),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if isConditionFailed(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("saving item: %w", err)
	}
	return true, nil
}

func (s *Store) getItem(ctx context.Context, client API, table, key, id string, projection ...string) (map[string]types.AttributeValue, error) {
	in := &dynamodb.GetItemInput{
		TableName:      aws.String(table),
		Key:            map[string]types.AttributeValue{key: &types.AttributeValueMemberS{Value: id}},
		ConsistentRead: aws.Bool(true),
	}
	if len(projection) > 0 {
		names := make([]expression.NameBuilder, 0, len(projection))
		for _, p := range projection {
			names = append(names, expression.Name(p))
		}
		proj := expression.NamesList(names[0], names[1:]...)
		expr, err := expression.NewBuilder().WithProjection(proj).Build()
		if err != nil {
			return nil, fmt.Errorf("building projection: %w", err)
		}
		in.ProjectionExpression = expr.Projection()
		in.ExpressionAttributeNames = expr.Names()
	}

	out, err := client.GetItem(ctx, in)
	if err != nil {
		return nil, err
	}
	return out.Item, nil
}

func (s *Store) GetItem(ctx context.Context, itemID string) (*model.Item, error) {
	client, err := s.conn()
	if err != nil {
		return nil, err
	}
	if itemID == "" {
		return nil, nil
	}

	av, err := s.getItem(ctx, client, s.itemsTable, "item_id", itemID)
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	if len(av) == 0 {
		return nil, nil
	}

	var rec ddbItem
	if err := attributevalue.UnmarshalMap(av, &rec); err != nil {
		return nil, fmt.Errorf("unmarshaling item: %w", err)
	}
	return &model.Item{
		ItemID:     rec.ItemID,
		Name:       rec.Name,
		Address:    rec.Address,
		URL:        rec.URL,
		ImageURL:   rec.ImageURL,
		Rating:     rec.Rating,
		Distance:   rec.Distance,
		Categories: model.NormalizeSet(rec.Categories),
	}, nil
}

func (s *Store) GetCategories(ctx context.Context, itemID string) ([]string, error) {
	client, err := s.conn()
	if err != nil {
		return nil, err
	}
	if itemID == "" {
		return []string{}, nil
	}

	av, err := s.getItem(ctx, client, s.itemsTable, "item_id", itemID, "categories")
	if err != nil {
		return nil, fmt.Errorf("getting categories: %w", err)
	}
	var rec ddbItem
	if err := attributevalue.UnmarshalMap(av, &rec); err != nil {
		return nil, fmt.Errorf("unmarshaling categories: %w", err)
	}
	return model.NormalizeSet(rec.Categories), nil
}

// updateFavorites applies a set ADD or DELETE to the user's favorite
// attribute. The update is conditional on the user existing, so unknown
// users are left untouched.
func (s *Store) updateFavorites(ctx context.Context, op, userID string, itemIDs []string) error {
	client, err := s.conn()
	if err != nil {
		return err
	}
	ids := model.NormalizeSet(itemIDs)
	if len(ids) == 0 || userID == "" {
		return nil
	}

	_, err = client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.usersTable),
		Key:                 map[string]types.AttributeValue{"user_id": &types.AttributeValueMemberS{Value: userID}},
		UpdateExpression:    aws.String(op + " #fav :ids"),
		ConditionExpression: aws.String("attribute_exists(#uid)"),
		ExpressionAttributeNames: map[string]string{
			"#fav": "favorite",
			"#uid": "user_id",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ids": &types.AttributeValueMemberSS{Value: ids},
		},
	})
	if isConditionFailed(err) {
		return nil
	}
	return err
}

func (s *Store) AddFavorites(ctx context.Context, userID string, itemIDs []string) error {
	if err := s.updateFavorites(ctx, "ADD", userID, itemIDs); err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			return err
		}
		return fmt.Errorf("adding favorites: %w", err)
	}
	return nil
}

func (s *Store) RemoveFavorites(ctx context.Context, userID string, itemIDs []string) error {
	if err := s.updateFavorites(ctx, "DELETE", userID, itemIDs); err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			return err
		}
		return fmt.Errorf("removing favorites: %w", err)
	}
	return nil
}

func (s *Store) FavoriteIDs(ctx context.Context, userID string) ([]string, error) {
	client, err := s.conn()
	if err != nil {
		return nil, err
	}
	if userID == "" {
		return []string{}, nil
	}

	av, err := s.getItem(ctx, client, s.usersTable, "user_id", userID, "favorite")
	if err != nil {
		return nil, fmt.Errorf("listing favorites: %w", err)
	}
	var rec ddbUser
	if err := attributevalue.UnmarshalMap(av, &rec); err != nil {
		return nil, fmt.Errorf("unmarshaling favorites: %w", err)
	}
	return model.NormalizeSet(rec.Favorite), nil
}

func (s *Store) GetUser(ctx context.Context, userID string) (*model.User, error) {
	client, err := s.conn()
	if err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, nil
	}

	av, err := s.getItem(ctx, client, s.usersTable, "user_id", userID)
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	if len(av) == 0 {
		return nil, nil
	}

	var rec ddbUser
	if err := attributevalue.UnmarshalMap(av, &rec); err != nil {
		return nil, fmt.Errorf("unmarshaling user: %w", err)
	}
	return &model.User{
		UserID:    rec.UserID,
		FirstName: rec.FirstName,
		LastName:  rec.LastName,
		Password:  rec.Password,
		Favorite:  model.NormalizeSet(rec.Favorite),
	}, nil
}

func (s *Store) CreateUser(ctx context.Context, user model.User) error {
	client, err := s.conn()
	if err != nil {
		return err
	}
	if user.UserID == "" {
		return fmt.Errorf("creating user: %w", store.ErrMissingID)
	}

	av, err := attributevalue.MarshalMap(ddbUser{
		UserID:    user.UserID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Password:  user.Password,
		Favorite:  model.NormalizeSet(user.Favorite),
	})
	if err != nil {
		return fmt.Errorf("marshaling user: %w", err)
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name("user_id"))).
		Build()
	if err != nil {
		return fmt.Errorf("building condition: %w", err)
	}

	_, err = client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(s.usersTable),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if isConditionFailed(err) {
		return store.ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

// Close marks the store closed. The SDK client holds no resources that
// need releasing.
func (s *Store) Close() error {
	if s != nil {
		s.closed.Store(true)
	}
	return nil
}
