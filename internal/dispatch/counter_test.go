package dispatch

import (
	"fmt"
	"sync"
	"testing"
)

func TestShouldShareContact(t *testing.T) {
	tests := []struct {
		n    int
		want bool
	}{
		{1, true}, {2, false}, {3, false}, {4, false},
		{5, true}, {6, false}, {10, true}, {11, false}, {15, true},
	}
	for _, tt := range tests {
		if got := ShouldShareContact(tt.n); got != tt.want {
			t.Errorf("ShouldShareContact(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestChatCounterIsPerChat(t *testing.T) {
	c := NewChatCounter()
	if n := c.Bump("a"); n != 1 {
		t.Fatalf("first Bump(a) = %d", n)
	}
	if n := c.Bump("a"); n != 2 {
		t.Fatalf("second Bump(a) = %d", n)
	}
	if n := c.Bump("b"); n != 1 {
		t.Fatalf("Bump(b) = %d, counts leaked across chats", n)
	}

	c.Reset()
	if n := c.Bump("a"); n != 1 {
		t.Fatalf("Bump(a) after Reset = %d", n)
	}
}

func TestChatCounterConcurrent(t *testing.T) {
	c := NewChatCounter()
	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			chatID := fmt.Sprintf("chat-%d", i%2)
			for range 50 {
				c.Bump(chatID)
			}
		}()
	}
	wg.Wait()

	if n := c.Bump("chat-0"); n != 251 {
		t.Errorf("chat-0 count = %d, want 251", n)
	}
	if n := c.Bump("chat-1"); n != 251 {
		t.Errorf("chat-1 count = %d, want 251", n)
	}
}
