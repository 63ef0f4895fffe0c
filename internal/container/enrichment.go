package container

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/tinylink/internal/analytics"
	"github.com/serroba/tinylink/internal/geo"
	"github.com/serroba/tinylink/internal/messaging"
	"go.uber.org/zap"
)

const enrichmentConsumerGroup = "visit-enrichment"

// EnrichmentPackage provides the enricher and the publish function the recorder dispatches
// visits through. Inline mode calls the enricher directly; memory mode queues through an
// in-process channel; redis mode writes to a Redis stream read by the consumer binary.
func EnrichmentPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*analytics.Enricher, error) {
		opts := do.MustInvoke[*Options](i)

		return analytics.NewEnricher(
			do.MustInvoke[Storage](i),
			do.MustInvoke[geo.Resolver](i),
			time.Duration(opts.GeoTimeoutMS)*time.Millisecond,
			do.MustInvoke[*zap.Logger](i),
		), nil
	})

	do.Provide(i, func(i *do.Injector) (*gochannel.GoChannel, error) {
		logger := do.MustInvoke[*zap.Logger](i)

		return gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 1024,
		}, messaging.NewZapLogger(logger)), nil
	})

	do.Provide(i, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		var (
			publisher message.Publisher
			err       error
		)

		switch opts.Enrichment {
		case EnrichmentMemory:
			publisher = do.MustInvoke[*gochannel.GoChannel](i)
		case EnrichmentRedis:
			publisher, err = redisstream.NewPublisher(redisstream.PublisherConfig{
				Client:     do.MustInvoke[*redis.Client](i),
				Marshaller: redisstream.DefaultMarshallerUnmarshaller{},
			}, messaging.NewZapLogger(logger))
			if err != nil {
				return nil, fmt.Errorf("redis stream publisher: %w", err)
			}
		default:
			return nil, fmt.Errorf("enrichment mode %q has no broker", opts.Enrichment)
		}

		return messaging.NewPublisherGroup(publisher), nil
	})

	do.Provide(i, func(i *do.Injector) (messaging.Publish[analytics.VisitRecordedEvent], error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.Enrichment {
		case EnrichmentInline, "":
			enricher := do.MustInvoke[*analytics.Enricher](i)

			return messaging.HandlerPublish[analytics.VisitRecordedEvent](enricher.Handle), nil
		case EnrichmentMemory, EnrichmentRedis:
			group := do.MustInvoke[*messaging.PublisherGroup](i)

			return messaging.NewPublishFunc[analytics.VisitRecordedEvent](
				group.Publisher(), analytics.TopicVisitRecorded,
			), nil
		default:
			return nil, fmt.Errorf("unknown enrichment mode %q", opts.Enrichment)
		}
	})
}

// ConsumerGroupPackage provides the consumer group running the enricher. Memory mode shares
// the in-process channel with the publisher, so the server runs it; redis mode is run by the
// consumer binary.
func ConsumerGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		var subscriber message.Subscriber

		switch opts.Enrichment {
		case EnrichmentMemory:
			subscriber = do.MustInvoke[*gochannel.GoChannel](i)
		case EnrichmentRedis:
			sub, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
				Client:        do.MustInvoke[*redis.Client](i),
				Unmarshaller:  redisstream.DefaultMarshallerUnmarshaller{},
				ConsumerGroup: enrichmentConsumerGroup,
			}, messaging.NewZapLogger(logger))
			if err != nil {
				return nil, fmt.Errorf("redis stream subscriber: %w", err)
			}

			subscriber = sub
		default:
			return nil, fmt.Errorf("enrichment mode %q has no consumers", opts.Enrichment)
		}

		enricher := do.MustInvoke[*analytics.Enricher](i)
		timeout := 2 * time.Duration(opts.GeoTimeoutMS) * time.Millisecond

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(messaging.NewConsumer[analytics.VisitRecordedEvent](
			subscriber,
			analytics.TopicVisitRecorded,
			enricher.Handle,
			logger,
			messaging.WithHandlerTimeout(timeout),
		))

		return group, nil
	})
}
