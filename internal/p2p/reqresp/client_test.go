package reqresp

import (
	"testing"
	"time"
)

type fakeMessage struct {
	requestID string
	replyTo   string
}

func (m *fakeMessage) GetRequestID() string  { return m.requestID }
func (m *fakeMessage) SetRequestID(id string) { m.requestID = id }
func (m *fakeMessage) GetReplyTo() string    { return m.replyTo }
func (m *fakeMessage) SetReplyTo(id string)  { m.replyTo = id }

type fakeSender struct {
	deliver func(address string, msg Message)
	err     error
}

func (s *fakeSender) SendTo(address string, msg Message) error {
	if s.err != nil {
		return s.err
	}
	if s.deliver != nil {
		s.deliver(address, msg)
	}
	return nil
}

func TestSendRequestReturnsTheMatchingDeliveredResponse(t *testing.T) {
	var client *Client
	sender := &fakeSender{}
	sender.deliver = func(address string, msg Message) {
		reply := &fakeMessage{}
		reply.SetReplyTo(msg.GetRequestID())
		go client.Deliver(reply)
	}
	client = New(DefaultConfig(), sender)

	resp, err := client.SendRequest("node-b:7070", &fakeMessage{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.(*fakeMessage).replyTo == "" {
		t.Fatal("expected the delivered response to carry a reply-to id")
	}
	if client.PendingCount() != 0 {
		t.Fatalf("pending count = %d, want 0 after the request resolved", client.PendingCount())
	}
}

func TestSendRequestTimesOutWhenNoReplyArrives(t *testing.T) {
	client := New(Config{MaxPending: 256, ReplyTimeout: 20 * time.Millisecond}, &fakeSender{})

	_, err := client.SendRequest("node-b:7070", &fakeMessage{})
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	if client.PendingCount() != 0 {
		t.Fatalf("pending count = %d, want 0 after the request timed out", client.PendingCount())
	}
}

func TestSendRequestPropagatesSendFailureWithoutLeakingPending(t *testing.T) {
	client := New(DefaultConfig(), &fakeSender{err: errSendFailed})

	_, err := client.SendRequest("node-b:7070", &fakeMessage{})
	if err == nil {
		t.Fatal("expected the send failure to surface")
	}
	if client.PendingCount() != 0 {
		t.Fatalf("pending count = %d, want 0 after the failed send", client.PendingCount())
	}
}

func TestSendRequestRejectsWhenAtMaxPending(t *testing.T) {
	client := New(Config{MaxPending: 1, ReplyTimeout: 50 * time.Millisecond}, &fakeSender{})

	done := make(chan struct{})
	go func() {
		client.SendRequest("node-b:7070", &fakeMessage{})
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for client.PendingCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if client.PendingCount() != 1 {
		t.Fatal("expected the first request to be registered as pending")
	}

	_, err := client.SendRequest("node-c:7070", &fakeMessage{})
	if err == nil {
		t.Fatal("expected the second request to be rejected at MaxPending")
	}
	<-done
}

func TestDeliverIgnoresMessagesWithNoReplyToOrNoMatch(t *testing.T) {
	client := New(DefaultConfig(), &fakeSender{})

	if client.Deliver(&fakeMessage{}) {
		t.Fatal("expected a message with an empty reply-to to be ignored")
	}
	if client.Deliver(&fakeMessage{replyTo: "unknown-request"}) {
		t.Fatal("expected a message replying to an unknown request to be ignored")
	}
}

var errSendFailed = &sendError{"send failed"}

type sendError struct{ msg string }

func (e *sendError) Error() string { return e.msg }
