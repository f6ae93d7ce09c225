package echo

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/GriffinCanCode/etherpipe/internal/exchange"
)

func TestUDPServerEchoesSequence(t *testing.T) {
	srv, err := ListenUDP("127.0.0.1:0")
	require.NoError(t, err)
	defer srv.Close()

	conn, err := net.Dial("udp", srv.Addr())
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(time.Second)))

	_, err = conn.Write([]byte("9 41"))
	require.NoError(t, err)

	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "9 41", string(buf[:n]))
}

func TestUDPServerIgnoresMalformed(t *testing.T) {
	srv, err := ListenUDP("127.0.0.1:0")
	require.NoError(t, err)
	defer srv.Close()

	conn, err := net.Dial("udp", srv.Addr())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("garbage"))
	require.NoError(t, err)
	_, err = conn.Write([]byte("1 5"))
	require.NoError(t, err)

	require.NoError(t, conn.SetDeadline(time.Now().Add(time.Second)))
	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "1 5", string(buf[:n]))
}

func TestHTTPRouter(t *testing.T) {
	s := &HTTPServer{opts: buildOptions([]Option{WithResponder(func(v int64) (int64, error) {
		return v + 100, nil
	})})}
	router := s.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	body, err := sonic.Marshal(exchange.Message{Value: 5, RequestID: "xchg_a"})
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/exchange", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var out exchange.Message
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, int64(105), out.Value)
	assert.Equal(t, "xchg_a", out.RequestID)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/exchange", bytes.NewReader([]byte("{"))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGRPCServerRefusal(t *testing.T) {
	srv, err := ListenGRPC("127.0.0.1:0", WithResponder(func(int64) (int64, error) {
		return 0, ErrRejected
	}))
	require.NoError(t, err)
	defer srv.Close()

	conn, err := grpc.NewClient(srv.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := new(wrapperspb.Int64Value)
	err = conn.Invoke(ctx, exchange.ExchangeMethod, wrapperspb.Int64(3), out)
	assert.Equal(t, codes.Unavailable, status.Code(err))
}
