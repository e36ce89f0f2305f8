package db

import (
	"strconv"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/jsphweid/sightreader/model"
	"github.com/pkg/errors"
)

// MetadataStore looks up descriptive metadata for a score source.
type MetadataStore interface {
	GetScoreMetadata(source string) (model.ScoreMetadata, bool, error)
}

// DynamoStore reads items keyed by PK = score source from one table.
type DynamoStore struct {
	client dynamodbiface.DynamoDBAPI
	table  string
}

func NewDynamoStore(client dynamodbiface.DynamoDBAPI, table string) *DynamoStore {
	return &DynamoStore{client: client, table: table}
}

// OpenDynamoStore connects to a local or custom DynamoDB endpoint.
func OpenDynamoStore(endpoint string, table string) (*DynamoStore, error) {
	sess, err := session.NewSession(&aws.Config{
		Region:   aws.String("localhost"),
		Endpoint: aws.String(endpoint),
	})
	if err != nil {
		return nil, errors.Wrap(err, "Could not create a new DynamoDB session")
	}
	return NewDynamoStore(dynamodb.New(sess), table), nil
}

func (s *DynamoStore) GetScoreMetadata(source string) (model.ScoreMetadata, bool, error) {
	var res model.ScoreMetadata
	out, err := s.client.GetItem(&dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]*dynamodb.AttributeValue{
			"PK": {S: aws.String(source)},
		},
	})
	if err != nil {
		return res, false, errors.Wrap(err, "Error from DynamoDB")
	}
	if len(out.Item) == 0 {
		return res, false, nil
	}

	item := out.Item
	if v := item["Year"]; v != nil && v.N != nil {
		year, _ := strconv.ParseUint(*v.N, 10, 32)
		res.Year = uint(year)
	}
	if v := item["Title"]; v != nil && v.S != nil {
		res.Title = *v.S
	}
	if v := item["Composer"]; v != nil && v.S != nil {
		res.Composer = *v.S
	}
	return res, true, nil
}
