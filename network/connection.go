package network

import (
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Message is one inbound frame: either a decoded JSON envelope or a raw
// binary snapshot.
type Message struct {
	Binary bool
	Env    *Envelope
	Data   []byte
}

type Connection interface {
	Send(event string, payload any) error
	SendBinary(data []byte) error
	Read() (*Message, error)
	Close() error
	RemoteAddr() net.Addr
}

const writeTimeout = 5 * time.Second

type WSConnection struct {
	conn      *websocket.Conn
	sendMutex sync.Mutex
}

func NewWSConnection(conn *websocket.Conn) *WSConnection {
	return &WSConnection{conn: conn}
}

func (c *WSConnection) Send(event string, payload any) error {
	data, err := Encode(event, payload)
	if err != nil {
		return err
	}
	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *WSConnection) SendBinary(data []byte) error {
	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (c *WSConnection) Read() (*Message, error) {
	msgType, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if msgType == websocket.BinaryMessage {
		return &Message{Binary: true, Data: data}, nil
	}
	// A frame that is not even an envelope is dropped by the dispatcher,
	// not fatal to the connection: Env stays nil.
	env, err := DecodeEnvelope(data)
	if err != nil {
		return &Message{Data: data}, nil
	}
	return &Message{Env: env, Data: data}, nil
}

func (c *WSConnection) Close() error {
	return c.conn.Close()
}

func (c *WSConnection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
