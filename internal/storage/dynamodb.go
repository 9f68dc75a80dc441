package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/ONSdigital/blaise-export-reporting-tool/internal/types"
)

// maxBatchWrite is the DynamoDB BatchWriteItem limit
const maxBatchWrite = 25

// attribute name -> report column
var itemColumns = map[string]types.Column{
	attrInterviewer:     types.ColumnInterviewer,
	"QuestionnaireName": types.ColumnQuestionnaireName,
	"CallStartTime":     types.ColumnCallStartTime,
	"CallEndTime":       types.ColumnCallEndTime,
	"DialSecs":          types.ColumnDialSecs,
	"Status":            types.ColumnStatus,
	"CallResult":        types.ColumnCallResult,
	"OutcomeCode":       types.ColumnOutcomeCode,
}

// DynamoDBStore implements Store using AWS DynamoDB
type DynamoDBStore struct {
	client *dynamodb.Client
	config DynamoConfig
	logger zerolog.Logger
}

// NewDynamoDBStore creates a new DynamoDB store
func NewDynamoDBStore(ctx context.Context, cfg DynamoConfig, logger zerolog.Logger) (*DynamoDBStore, error) {
	var client *dynamodb.Client

	if cfg.Mode == DynamoModeLocal {
		// For local mode, build the client directly without LoadDefaultConfig.
		// LoadDefaultConfig probes the EC2 IMDS endpoint which hangs on EC2
		// instances when static credentials are intended.
		client = dynamodb.New(dynamodb.Options{
			Region:       cfg.Region,
			BaseEndpoint: aws.String(cfg.Endpoint),
			Credentials:  credentials.NewStaticCredentialsProvider("local", "local", ""),
		})
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client = dynamodb.NewFromConfig(awsCfg)
	}

	store := &DynamoDBStore{
		client: client,
		config: cfg,
		logger: logger.With().Str("component", "dynamodb").Logger(),
	}

	// Create tables in local mode
	if cfg.Mode == DynamoModeLocal {
		if err := CreateTablesIfNotExist(ctx, client, cfg, logger); err != nil {
			return nil, err
		}
	}

	logger.Info().
		Str("mode", string(cfg.Mode)).
		Str("region", cfg.Region).
		Str("table", cfg.CallHistoryTable).
		Msg("DynamoDB store initialized")

	return store, nil
}

// NewStore creates the appropriate store based on configuration
func NewStore(ctx context.Context, logger zerolog.Logger) (Store, error) {
	cfg := LoadDynamoConfig()

	switch cfg.Mode {
	case DynamoModeLocal, DynamoModeAWS:
		return NewDynamoDBStore(ctx, cfg, logger)
	default:
		logger.Info().Msg("DynamoDB disabled (DYNAMO_MODE=none)")
		return NewNoopStore(), nil
	}
}

func (s *DynamoDBStore) SaveCallRecords(ctx context.Context, records []types.CallRecord) (int, error) {
	requests := make([]dbtypes.WriteRequest, 0, len(records))
	skipped := 0
	for _, r := range records {
		r, ok := prepareRecord(r)
		if !ok {
			skipped++
			continue
		}
		item, err := attributevalue.MarshalMap(r)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal call record: %w", err)
		}
		requests = append(requests, dbtypes.WriteRequest{PutRequest: &dbtypes.PutRequest{Item: item}})
	}

	if skipped > 0 {
		s.logger.Warn().Int("skipped", skipped).Msg("skipped call records without a dial date")
	}

	// Batch write in groups of 25
	for i := 0; i < len(requests); i += maxBatchWrite {
		end := i + maxBatchWrite
		if end > len(requests) {
			end = len(requests)
		}
		if err := s.batchWrite(ctx, requests[i:end]); err != nil {
			return i, fmt.Errorf("failed to save call records: %w", err)
		}
	}

	return len(requests), nil
}

// batchWrite writes one batch, retrying unprocessed items with backoff
func (s *DynamoDBStore) batchWrite(ctx context.Context, pending []dbtypes.WriteRequest) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 10 * time.Second

	op := func() error {
		out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]dbtypes.WriteRequest{
				s.config.CallHistoryTable: pending,
			},
		})
		if err != nil {
			return backoff.Permanent(err)
		}
		pending = out.UnprocessedItems[s.config.CallHistoryTable]
		if len(pending) > 0 {
			return fmt.Errorf("%d unprocessed items", len(pending))
		}
		return nil
	}

	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}

// GetCallHistory queries one interviewer's partition by dial key range and
// filters on questionnaire name.
func (s *DynamoDBStore) GetCallHistory(ctx context.Context, q types.CallHistoryQuery) (types.RecordSet, error) {
	expr, err := historyExpression(q)
	if err != nil {
		return types.RecordSet{}, fmt.Errorf("failed to build expression: %w", err)
	}

	var items []map[string]dbtypes.AttributeValue
	var lastKey map[string]dbtypes.AttributeValue
	for {
		input := &dynamodb.QueryInput{
			TableName:                 aws.String(s.config.CallHistoryTable),
			KeyConditionExpression:    expr.KeyCondition(),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		}
		if lastKey != nil {
			input.ExclusiveStartKey = lastKey
		}

		result, err := s.client.Query(ctx, input)
		if err != nil {
			return types.RecordSet{}, fmt.Errorf("failed to query call history: %w", err)
		}
		items = append(items, result.Items...)

		lastKey = result.LastEvaluatedKey
		if lastKey == nil {
			break
		}
	}

	rs, err := decodeItems(items)
	if err != nil {
		return types.RecordSet{}, err
	}

	s.logger.Debug().
		Str("interviewer", q.Interviewer).
		Str("start_date", q.StartKey()).
		Str("end_date", q.EndKey()).
		Int("records", rs.Len()).
		Msg("call history queried")

	return rs, nil
}

// historyExpression selects dial keys from the start date up to and including
// every key filed under the end date. Keys are "YYYY-MM-DD#id" and '$' sorts
// directly after '#'.
func historyExpression(q types.CallHistoryQuery) (expression.Expression, error) {
	keyCond := expression.Key(attrInterviewer).Equal(expression.Value(q.Interviewer)).
		And(expression.Key(attrDialKey).Between(
			expression.Value(q.StartKey()),
			expression.Value(q.EndKey()+"$"),
		))

	builder := expression.NewBuilder().WithKeyCondition(keyCond)

	var filters []expression.ConditionBuilder
	if q.SurveyTLA != "" {
		filters = append(filters, expression.Name("QuestionnaireName").BeginsWith(q.SurveyTLA))
	}
	if len(q.Questionnaires) > 0 {
		names := make([]expression.OperandBuilder, 0, len(q.Questionnaires))
		for _, n := range q.Questionnaires {
			names = append(names, expression.Value(n))
		}
		filters = append(filters, expression.Name("QuestionnaireName").In(names[0], names[1:]...))
	}

	switch len(filters) {
	case 0:
	case 1:
		builder = builder.WithFilter(filters[0])
	default:
		builder = builder.WithFilter(filters[0].And(filters[1], filters[2:]...))
	}

	return builder.Build()
}

// decodeItems unmarshals items and records every attribute seen as a column
func decodeItems(items []map[string]dbtypes.AttributeValue) (types.RecordSet, error) {
	cols := types.NewColumnSet()
	for _, item := range items {
		for name := range item {
			if c, ok := itemColumns[name]; ok {
				cols.Add(c)
			}
		}
	}

	var records []types.CallRecord
	if err := attributevalue.UnmarshalListOfMaps(items, &records); err != nil {
		return types.RecordSet{}, fmt.Errorf("failed to unmarshal call records: %w", err)
	}
	return types.RecordSet{Columns: cols, Records: records}, nil
}

// TruncateAll deletes all items from the call history table (scan + batch delete)
func (s *DynamoDBStore) TruncateAll(ctx context.Context) error {
	if err := s.truncateTable(ctx, s.config.CallHistoryTable, attrInterviewer, attrDialKey); err != nil {
		return fmt.Errorf("failed to truncate %s: %w", s.config.CallHistoryTable, err)
	}
	return nil
}

func (s *DynamoDBStore) truncateTable(ctx context.Context, tableName, pk, sk string) error {
	var lastKey map[string]dbtypes.AttributeValue

	for {
		input := &dynamodb.ScanInput{
			TableName:            aws.String(tableName),
			ProjectionExpression: aws.String("#pk, #sk"),
			ExpressionAttributeNames: map[string]string{
				"#pk": pk,
				"#sk": sk,
			},
			Limit: aws.Int32(500),
		}
		if lastKey != nil {
			input.ExclusiveStartKey = lastKey
		}

		result, err := s.client.Scan(ctx, input)
		if err != nil {
			return err
		}

		for i := 0; i < len(result.Items); i += maxBatchWrite {
			end := i + maxBatchWrite
			if end > len(result.Items) {
				end = len(result.Items)
			}

			requests := make([]dbtypes.WriteRequest, 0, end-i)
			for _, item := range result.Items[i:end] {
				requests = append(requests, dbtypes.WriteRequest{
					DeleteRequest: &dbtypes.DeleteRequest{
						Key: map[string]dbtypes.AttributeValue{
							pk: item[pk],
							sk: item[sk],
						},
					},
				})
			}

			if err := s.batchWrite(ctx, requests); err != nil {
				return err
			}
		}

		lastKey = result.LastEvaluatedKey
		if lastKey == nil {
			break
		}
	}

	s.logger.Info().Str("table", tableName).Msg("table truncated")
	return nil
}

// IsNotFound reports whether err is a DynamoDB missing-table error
func IsNotFound(err error) bool {
	var rnf *dbtypes.ResourceNotFoundException
	return errors.As(err, &rnf)
}
