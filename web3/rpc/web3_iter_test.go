package rpc

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestWeb3IteratorRoundRobin(t *testing.T) {
	c := qt.New(t)
	it := NewWeb3Iterator(
		&Web3Endpoint{ChainID: 1, URI: "http://a"},
		&Web3Endpoint{ChainID: 1, URI: "http://b"},
		&Web3Endpoint{ChainID: 1, URI: "http://c"},
	)
	var seen []string
	for range 6 {
		e, err := it.Next()
		c.Assert(err, qt.IsNil)
		seen = append(seen, e.URI)
	}
	c.Assert(seen, qt.DeepEquals, []string{
		"http://a", "http://b", "http://c",
		"http://a", "http://b", "http://c",
	})
}

func TestWeb3IteratorDisable(t *testing.T) {
	c := qt.New(t)
	it := NewWeb3Iterator(
		&Web3Endpoint{ChainID: 1, URI: "http://a"},
		&Web3Endpoint{ChainID: 1, URI: "http://b"},
	)
	it.Disable("http://a")
	c.Assert(it.Available(), qt.Equals, 1)
	for range 3 {
		e, err := it.Next()
		c.Assert(err, qt.IsNil)
		c.Assert(e.URI, qt.Equals, "http://b")
	}

	// Disabling the last endpoint puts everything back in rotation.
	it.Disable("http://b")
	c.Assert(it.Available(), qt.Equals, 2)
	e, err := it.Next()
	c.Assert(err, qt.IsNil)
	c.Assert(e.URI, qt.Not(qt.Equals), "")
}

func TestWeb3IteratorEmpty(t *testing.T) {
	c := qt.New(t)
	it := NewWeb3Iterator()
	_, err := it.Next()
	c.Assert(err, qt.IsNotNil)
}

func TestIsPermanentError(t *testing.T) {
	c := qt.New(t)
	c.Assert(IsPermanentError(nil), qt.IsFalse)
	c.Assert(IsPermanentError(&RPCError{Message: "execution reverted: bad proof"}), qt.IsTrue)
	c.Assert(IsPermanentError(&RPCError{Message: "connection refused"}), qt.IsFalse)
}
