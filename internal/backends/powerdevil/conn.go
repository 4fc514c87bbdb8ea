package powerdevil

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// Conn is the subset of a D-Bus connection the driver needs. All calls are
// addressed to the ScreenBrightness service.
type Conn interface {
	NameHasOwner(ctx context.Context, name string) (bool, error)
	GetProperty(ctx context.Context, path, iface, prop string) (any, error)
	Call(ctx context.Context, path, iface, method string, args ...any) error
	Close() error
}

// isRemoteError reports whether err is an error reply from the service,
// which leaves the connection usable.
func isRemoteError(err error) bool {
	var v dbus.Error
	var p *dbus.Error
	return errors.As(err, &v) || errors.As(err, &p)
}

// Dialer opens a Conn.
type Dialer func() (Conn, error)

// DialSession connects to the user's session bus.
func DialSession() (Conn, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connecting to session bus: %w", err)
	}
	return &sessionConn{conn: conn}, nil
}

type sessionConn struct {
	conn *dbus.Conn
}

func (s *sessionConn) NameHasOwner(ctx context.Context, name string) (bool, error) {
	var owned bool
	err := s.conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.NameHasOwner", 0, name).Store(&owned)
	if err != nil {
		return false, err
	}
	return owned, nil
}

func (s *sessionConn) GetProperty(ctx context.Context, path, iface, prop string) (any, error) {
	var v dbus.Variant
	obj := s.conn.Object(ServiceName, dbus.ObjectPath(path))
	if err := obj.CallWithContext(ctx, "org.freedesktop.DBus.Properties.Get", 0, iface, prop).Store(&v); err != nil {
		return nil, err
	}
	return v.Value(), nil
}

func (s *sessionConn) Call(ctx context.Context, path, iface, method string, args ...any) error {
	obj := s.conn.Object(ServiceName, dbus.ObjectPath(path))
	return obj.CallWithContext(ctx, iface+"."+method, 0, args...).Err
}

func (s *sessionConn) Close() error {
	return s.conn.Close()
}
