package dynamo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodbstreams"
	streamtypes "github.com/aws/aws-sdk-go-v2/service/dynamodbstreams/types"
	"github.com/corpsite-backoffice/internal/domain"
	"github.com/corpsite-backoffice/internal/realtime"
)

// StreamsAPI is the subset of the DynamoDB Streams client used by StreamSource.
type StreamsAPI interface {
	ListStreams(ctx context.Context, in *dynamodbstreams.ListStreamsInput, optFns ...func(*dynamodbstreams.Options)) (*dynamodbstreams.ListStreamsOutput, error)
	DescribeStream(ctx context.Context, in *dynamodbstreams.DescribeStreamInput, optFns ...func(*dynamodbstreams.Options)) (*dynamodbstreams.DescribeStreamOutput, error)
	GetShardIterator(ctx context.Context, in *dynamodbstreams.GetShardIteratorInput, optFns ...func(*dynamodbstreams.Options)) (*dynamodbstreams.GetShardIteratorOutput, error)
	GetRecords(ctx context.Context, in *dynamodbstreams.GetRecordsInput, optFns ...func(*dynamodbstreams.Options)) (*dynamodbstreams.GetRecordsOutput, error)
}

// StreamSource tails the inquiries table stream and reports each record as a
// realtime change event. It reads from LATEST, so only changes made after a
// subscription opens are delivered.
type StreamSource struct {
	api       StreamsAPI
	tableName string
	poll      time.Duration
	log       *slog.Logger
}

func NewStreamSource(api StreamsAPI, tableName string, poll time.Duration, log *slog.Logger) *StreamSource {
	if log == nil {
		log = slog.Default()
	}
	return &StreamSource{api: api, tableName: tableName, poll: poll, log: log.With("component", "dynamo_stream")}
}

type streamSub struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *streamSub) Close() error {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
	return nil
}

// Subscribe implements realtime.Source. Shard discovery happens in the background;
// the outcome is reported through onStatus.
func (s *StreamSource) Subscribe(ctx context.Context, onEvent realtime.Handler, onStatus realtime.StatusFunc) (realtime.Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	sub := &streamSub{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		st, err := s.run(ctx, onEvent, onStatus)
		if ctx.Err() != nil {
			return
		}
		onStatus(st, err)
	}()
	return sub, nil
}

// run polls every open shard until an error occurs or all shards close.
func (s *StreamSource) run(ctx context.Context, onEvent realtime.Handler, onStatus realtime.StatusFunc) (realtime.SubscriptionStatus, error) {
	iterators, err := s.openShards(ctx)
	if err != nil {
		return realtime.ChannelError, err
	}
	onStatus(realtime.Subscribed, nil)

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for len(iterators) > 0 {
		select {
		case <-ctx.Done():
			return realtime.Closed, ctx.Err()
		case <-ticker.C:
		}
		for shardID, it := range iterators {
			out, err := s.api.GetRecords(ctx, &dynamodbstreams.GetRecordsInput{ShardIterator: it})
			if err != nil {
				var expired *streamtypes.ExpiredIteratorException
				if errors.As(err, &expired) {
					return realtime.TimedOut, err
				}
				return realtime.ChannelError, err
			}
			for _, rec := range out.Records {
				ev, err := recordToChange(rec)
				if err != nil {
					s.log.Warn("skipping stream record", "shard", shardID, "err", err)
					continue
				}
				onEvent(ev)
			}
			if out.NextShardIterator == nil {
				delete(iterators, shardID)
				continue
			}
			iterators[shardID] = out.NextShardIterator
		}
	}
	// Every shard we held has been closed; resubscribing picks up their children.
	return realtime.Closed, nil
}

func (s *StreamSource) openShards(ctx context.Context) (map[string]*string, error) {
	streams, err := s.api.ListStreams(ctx, &dynamodbstreams.ListStreamsInput{TableName: aws.String(s.tableName)})
	if err != nil {
		return nil, fmt.Errorf("list streams: %w", err)
	}
	if len(streams.Streams) == 0 {
		return nil, fmt.Errorf("table %s has no stream", s.tableName)
	}
	arn := streams.Streams[0].StreamArn

	desc, err := s.api.DescribeStream(ctx, &dynamodbstreams.DescribeStreamInput{StreamArn: arn})
	if err != nil {
		return nil, fmt.Errorf("describe stream: %w", err)
	}
	iterators := make(map[string]*string)
	for _, shard := range desc.StreamDescription.Shards {
		if shard.SequenceNumberRange != nil && shard.SequenceNumberRange.EndingSequenceNumber != nil {
			continue
		}
		out, err := s.api.GetShardIterator(ctx, &dynamodbstreams.GetShardIteratorInput{
			StreamArn:         arn,
			ShardId:           shard.ShardId,
			ShardIteratorType: streamtypes.ShardIteratorTypeLatest,
		})
		if err != nil {
			return nil, fmt.Errorf("shard iterator %s: %w", aws.ToString(shard.ShardId), err)
		}
		iterators[aws.ToString(shard.ShardId)] = out.ShardIterator
	}
	if len(iterators) == 0 {
		return nil, errors.New("stream has no open shards")
	}
	return iterators, nil
}

// recordToChange converts a stream record into a ChangeEvent carrying JSON
// inquiry records, the same shape the other sources publish.
func recordToChange(rec streamtypes.Record) (domain.ChangeEvent, error) {
	if rec.Dynamodb == nil {
		return domain.ChangeEvent{}, errors.New("record without body")
	}
	ev := domain.ChangeEvent{Table: domain.InquiryFeedKey, CommitTimestamp: time.Now().UTC()}
	if rec.Dynamodb.ApproximateCreationDateTime != nil {
		ev.CommitTimestamp = rec.Dynamodb.ApproximateCreationDateTime.UTC()
	}
	switch rec.EventName {
	case streamtypes.OperationTypeInsert:
		ev.Type = domain.ChangeInsert
	case streamtypes.OperationTypeModify:
		ev.Type = domain.ChangeUpdate
	case streamtypes.OperationTypeRemove:
		ev.Type = domain.ChangeDelete
	default:
		return domain.ChangeEvent{}, fmt.Errorf("unknown operation %q", rec.EventName)
	}

	var err error
	if ev.New, err = imageToJSON(rec.Dynamodb.NewImage); err != nil {
		return domain.ChangeEvent{}, fmt.Errorf("new image: %w", err)
	}
	if ev.Old, err = imageToJSON(rec.Dynamodb.OldImage); err != nil {
		return domain.ChangeEvent{}, fmt.Errorf("old image: %w", err)
	}
	return ev, nil
}

func imageToJSON(img map[string]streamtypes.AttributeValue) (json.RawMessage, error) {
	if len(img) == 0 {
		return nil, nil
	}
	item, err := attributevalue.FromDynamoDBStreamsMap(img)
	if err != nil {
		return nil, err
	}
	var inq domain.Inquiry
	if err := attributevalue.UnmarshalMap(item, &inq); err != nil {
		return nil, err
	}
	return json.Marshal(inq)
}
