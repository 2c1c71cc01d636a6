package websocket

import (
	"slideshow-server/deck"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/engine.io/v2/utils"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

const deckRoom = socketio.Room("deck")

var (
	viewerCount int
	viewerMutex sync.RWMutex
)

// ViewerCount returns how many sockets are following the deck.
func ViewerCount() int {
	viewerMutex.RLock()
	defer viewerMutex.RUnlock()
	return viewerCount
}

func addViewers(delta int) int {
	viewerMutex.Lock()
	defer viewerMutex.Unlock()
	viewerCount += delta
	if viewerCount < 0 {
		viewerCount = 0
	}
	return viewerCount
}

// statePayload is what clients receive for deck-state and deck-updated.
func statePayload(s deck.State) map[string]any {
	ids := s.IDs
	if ids == nil {
		ids = []string{}
	}
	return map[string]any{
		"current": s.Current,
		"total":   s.Total,
		"ids":     ids,
	}
}

// SetupSocketIO creates the server viewers connect to. Every change to d is pushed to all
// of them as deck-updated.
func SetupSocketIO(d *deck.Deck) *socketio.Server {
	opts := socketio.DefaultServerOptions()
	opts.SetMaxHttpBufferSize(5000000)
	opts.SetPath("/socket.io")
	opts.SetAllowEIO3(true)
	opts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})
	srv := socketio.NewServer(nil, opts)

	d.OnChange(func(s deck.State) {
		if err := srv.To(deckRoom).Emit("deck-updated", statePayload(s)); err != nil {
			logrus.WithError(err).Warn("Failed to broadcast deck update")
		}
	})

	//nolint:errcheck // Socket.IO event handlers do not return useful errors
	srv.On("connection", func(clients ...any) {
		socket, ok := clients[0].(*socketio.Socket)
		if !ok {
			return
		}

		me := socket.Id()
		socket.Join(deckRoom)
		count := addViewers(1)
		utils.Log().Printf("viewer %v connected, %d following\n", me, count)

		_ = socket.Emit("deck-state", statePayload(d.State()))
		_ = srv.To(deckRoom).Emit("viewer-count", count)

		//nolint:errcheck // Socket.IO event handlers do not return useful errors
		socket.On("request-state", func(datas ...any) {
			_ = socket.Emit("deck-state", statePayload(d.State()))
		})

		socket.On("disconnect", func(datas ...any) {
			count := addViewers(-1)
			utils.Log().Printf("viewer %v left, %d following\n", me, count)
			_ = srv.To(deckRoom).Emit("viewer-count", count)
			socket.RemoveAllListeners("")
		})
	})

	return srv
}
