package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"
)

// Key attributes of the call history table
const (
	attrInterviewer = "Interviewer"
	attrDialKey     = "DialKey"
)

// CreateTablesIfNotExist creates DynamoDB tables for local development
func CreateTablesIfNotExist(ctx context.Context, client *dynamodb.Client, config DynamoConfig, logger zerolog.Logger) error {
	_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(config.CallHistoryTable),
	})
	if err == nil {
		logger.Info().Str("table", config.CallHistoryTable).Msg("table already exists")
		return nil
	}
	if !IsNotFound(err) {
		return fmt.Errorf("failed to describe table %s: %w", config.CallHistoryTable, err)
	}

	_, err = client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(config.CallHistoryTable),
		KeySchema: []dbtypes.KeySchemaElement{
			{AttributeName: aws.String(attrInterviewer), KeyType: dbtypes.KeyTypeHash},
			{AttributeName: aws.String(attrDialKey), KeyType: dbtypes.KeyTypeRange},
		},
		AttributeDefinitions: []dbtypes.AttributeDefinition{
			{AttributeName: aws.String(attrInterviewer), AttributeType: dbtypes.ScalarAttributeTypeS},
			{AttributeName: aws.String(attrDialKey), AttributeType: dbtypes.ScalarAttributeTypeS},
		},
		BillingMode: dbtypes.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", config.CallHistoryTable, err)
	}
	logger.Info().Str("table", config.CallHistoryTable).Msg("table created")

	return nil
}
