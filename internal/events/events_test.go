package events

import (
	"context"
	"slices"
	"testing"
)

func TestParseBrokers(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"localhost:9092", []string{"localhost:9092"}},
		{" a:9092 , b:9092,,", []string{"a:9092", "b:9092"}},
	}
	for _, tt := range tests {
		if got := ParseBrokers(tt.in); !slices.Equal(got, tt.want) {
			t.Errorf("ParseBrokers(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewKafkaPublisherValidation(t *testing.T) {
	if _, err := NewKafkaPublisher(nil, "tickets"); err == nil {
		t.Error("expected error without brokers")
	}
	if _, err := NewKafkaPublisher([]string{"localhost:9092"}, ""); err == nil {
		t.Error("expected error without topic")
	}
	p, err := NewKafkaPublisher([]string{"localhost:9092"}, "tickets")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.Close()
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	if err := p.Publish(context.Background(), Event{Type: TicketCreated}); err != nil {
		t.Errorf("Nop.Publish: %v", err)
	}
}
