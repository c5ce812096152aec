// Package test holds a conformance suite for [transport.Conn] implementations
// whose deadlines follow an injected clock.
//
// The server relies on what is checked here: a pending Read returns
// [transport.ErrConnClosed] when either side closes, and [transport.ErrDeadLineExceeded]
// once the clock passes the deadline.
package test

import (
	"bytes"
	"sync"
	"time"

	"httpd/transport"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

// ConnTestSuite expects SetupTest of the embedding suite to call
// ConnTestSuite.SetupTest first and then connect C1 to C2 using Clock.
type ConnTestSuite struct {
	suite.Suite
	C1, C2 transport.Conn
	Clock  *clock.Mock
}

// waitLimit bounds how long a test waits for a blocked call in real time.
const waitLimit = time.Second

type result struct {
	n   int
	err error
}

func (s *ConnTestSuite) SetupTest() {
	s.Clock = clock.NewMock()
}

func (s *ConnTestSuite) TearDownTest() {
	defer goleak.VerifyNone(s.T())
	s.NoError(s.C1.Close())
	s.NoError(s.C2.Close())
}

func (s *ConnTestSuite) async(f func() (int, error)) <-chan result {
	ch := make(chan result, 1)
	go func() {
		n, err := f()
		ch <- result{n, err}
	}()
	return ch
}

func (s *ConnTestSuite) recv(ch <-chan result) result {
	select {
	case r := <-ch:
		return r
	case <-time.After(waitLimit):
		s.FailNow("call did not return")
		return result{}
	}
}

func (s *ConnTestSuite) TestReadInPieces() {
	data := []byte("GET / HTTP/1.1\r\n\r\n")
	written := s.async(func() (int, error) { return s.C1.Write(data) })

	var got []byte
	buf := make([]byte, 5)
	for len(got) < len(data) {
		n, err := s.C2.Read(buf)
		s.Require().NoError(err)
		got = append(got, buf[:n]...)
	}

	r := s.recv(written)
	s.Require().NoError(r.err)
	s.Equal(len(data), r.n)
	s.Equal(data, got)
}

func (s *ConnTestSuite) TestConcurrentWritesDoNotInterleave() {
	const writers = 8
	data := []byte("HTTP/1.1 200 OK\r\n")

	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := s.C1.Write(data)
			s.NoError(err)
			s.Equal(len(data), n)
		}()
	}

	read := s.async(func() (int, error) {
		var got []byte
		buf := make([]byte, 7)
		for len(got) < writers*len(data) {
			n, err := s.C2.Read(buf)
			if err != nil {
				return len(got), err
			}
			got = append(got, buf[:n]...)
		}
		if !bytes.Equal(got, bytes.Repeat(data, writers)) {
			return len(got), transport.ErrConnClosed
		}
		return len(got), nil
	})

	r := s.recv(read)
	wg.Wait()
	s.NoError(r.err)
}

func (s *ConnTestSuite) TestPeerCloseUnblocksRead() {
	read := s.async(func() (int, error) { return s.C2.Read(make([]byte, 8)) })

	s.Require().NoError(s.C1.Close())

	r := s.recv(read)
	s.ErrorIs(r.err, transport.ErrConnClosed)
	s.Zero(r.n)
}

func (s *ConnTestSuite) TestCloseUnblocksOwnRead() {
	read := s.async(func() (int, error) { return s.C1.Read(make([]byte, 8)) })

	s.Require().NoError(s.C1.Close())

	r := s.recv(read)
	s.ErrorIs(r.err, transport.ErrConnClosed)
}

func (s *ConnTestSuite) TestPeerCloseUnblocksWrite() {
	write := s.async(func() (int, error) { return s.C1.Write([]byte("unread")) })

	s.Require().NoError(s.C2.Close())

	r := s.recv(write)
	s.ErrorIs(r.err, transport.ErrConnClosed)
}

func (s *ConnTestSuite) TestClosedBothWays() {
	s.Require().NoError(s.C1.Close())

	for _, c := range []transport.Conn{s.C1, s.C2} {
		n, err := c.Read(make([]byte, 1))
		s.ErrorIs(err, transport.ErrConnClosed)
		s.Zero(n)

		n, err = c.Write([]byte("x"))
		s.ErrorIs(err, transport.ErrConnClosed)
		s.Zero(n)
	}
}

func (s *ConnTestSuite) TestReadDeadLinePassed() {
	s.C1.SetReadDeadLine(s.Clock.Now().Add(-time.Second))

	n, err := s.C1.Read(make([]byte, 1))
	s.ErrorIs(err, transport.ErrDeadLineExceeded)
	s.Zero(n)
}

func (s *ConnTestSuite) TestReadDeadLineUnblocksRead() {
	s.C1.SetReadDeadLine(s.Clock.Now().Add(time.Minute))
	read := s.async(func() (int, error) { return s.C1.Read(make([]byte, 1)) })

	s.Clock.Add(time.Minute)

	r := s.recv(read)
	s.ErrorIs(r.err, transport.ErrDeadLineExceeded)
}

func (s *ConnTestSuite) TestReadDeadLineReset() {
	s.C1.SetReadDeadLine(s.Clock.Now().Add(-time.Second))
	s.C1.SetReadDeadLine(time.Time{})

	read := s.async(func() (int, error) { return s.C1.Read(make([]byte, 2)) })
	written := s.async(func() (int, error) { return s.C2.Write([]byte("ok")) })

	r := s.recv(read)
	s.Require().NoError(r.err)
	s.Equal(2, r.n)
	s.NoError(s.recv(written).err)
}

func (s *ConnTestSuite) TestWriteDeadLinePassed() {
	s.C1.SetWriteDeadLine(s.Clock.Now().Add(-time.Second))

	n, err := s.C1.Write([]byte("x"))
	s.ErrorIs(err, transport.ErrDeadLineExceeded)
	s.Zero(n)
}

func (s *ConnTestSuite) TestWriteDeadLineUnblocksWrite() {
	s.C1.SetWriteDeadLine(s.Clock.Now().Add(time.Second))
	write := s.async(func() (int, error) { return s.C1.Write([]byte("never read")) })

	s.Clock.Add(time.Second)

	r := s.recv(write)
	s.ErrorIs(r.err, transport.ErrDeadLineExceeded)
}

func (s *ConnTestSuite) TestAddr() {
	s.Equal(s.C1.LocalAddr(), s.C2.RemoteAddr())
	s.Equal(s.C2.LocalAddr(), s.C1.RemoteAddr())
}
