package game

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type websocketConnection struct {
	socket  *websocket.Conn
	writeMu sync.Mutex
}

func (wc *websocketConnection) Write(data []byte) error {
	wc.writeMu.Lock()
	defer wc.writeMu.Unlock()
	wc.socket.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return wc.socket.WriteMessage(websocket.BinaryMessage, data)
}

func (wc *websocketConnection) Ping() error {
	wc.writeMu.Lock()
	defer wc.writeMu.Unlock()
	return wc.socket.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second))
}

func (wc *websocketConnection) Read() ([]byte, error) {
	_, p, err := wc.socket.ReadMessage()
	return p, err
}

func (wc *websocketConnection) Close(errCode string) {
	wc.writeMu.Lock()
	defer wc.writeMu.Unlock()
	wc.socket.SetWriteDeadline(time.Now().Add(time.Second * 20))
	wc.socket.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, errCode))
	wc.socket.Close()
}

func NewWebsocketConnection(conn *websocket.Conn) *websocketConnection {
	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(time.Minute))
	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(time.Minute))
		return nil
	})
	return &websocketConnection{socket: conn}
}
