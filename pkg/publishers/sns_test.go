package publishers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

type fakeSNSClient struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNSClient) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-456")}, nil
}

func TestSNSPublisherSuccess(t *testing.T) {
	client := &fakeSNSClient{}
	pub := &snsPublisher{
		id:       "topic-1",
		typ:      TypeSNS,
		topicARN: "arn:aws:sns:us-east-1:123456789012:events",
		client:   client,
		log:      noopLogger{},
	}

	err := pub.Publish(context.Background(), NewEvent(EventFeedPublished, 550, "Left 4 Dead 2", true))
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if client.input == nil {
		t.Fatalf("client was not called")
	}
	if got := aws.ToString(client.input.TopicArn); got != "arn:aws:sns:us-east-1:123456789012:events" {
		t.Fatalf("TopicArn = %s", got)
	}
	attr, ok := client.input.MessageAttributes["event_type"]
	if !ok || attr.StringValue == nil || aws.ToString(attr.StringValue) != EventFeedPublished {
		t.Fatalf("event_type attribute missing or wrong: %#v", attr)
	}
	msg := aws.ToString(client.input.Message)
	if !strings.Contains(msg, `"early_access":true`) {
		t.Fatalf("Message missing event fields: %s", msg)
	}
}

func TestSNSPublisherSendError(t *testing.T) {
	client := &fakeSNSClient{err: errors.New("boom")}
	pub := &snsPublisher{
		id:       "topic-1",
		typ:      TypeSNS,
		topicARN: "arn:aws:sns:us-east-1:123456789012:events",
		client:   client,
		log:      noopLogger{},
	}

	err := pub.Publish(context.Background(), NewEvent(EventGameDiscovered, 550, "Left 4 Dead 2", true))
	if err == nil {
		t.Fatalf("expected error from Publish")
	}
}
