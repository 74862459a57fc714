package sqlkit

// Renders `LISTEN "channel"`.
func Listen(channel string) ListenStmt { return ListenStmt{channel} }

type ListenStmt struct{ Channel string }

// Implement the `Expr` interface, making this a sub-expression.
func (self ListenStmt) AppendExpr(text []byte) []byte {
	if self.Channel == `` {
		panic(errBuilder(`listen`, `channel`, `pass a channel name`))
	}
	bui := Bui{text}
	bui.Str(`LISTEN`)
	bui.Ident(self.Channel)
	return bui.Text
}

// Implement the `fmt.Stringer` interface. Panics on misuse.
func (self ListenStmt) String() string { return exprString(self) }

// Renders `UNLISTEN "channel"`.
func Unlisten(channel string) UnlistenStmt { return UnlistenStmt{channel} }

// Renders `UNLISTEN *`.
func UnlistenAll() UnlistenStmt { return UnlistenStmt{`*`} }

type UnlistenStmt struct{ Channel string }

// Implement the `Expr` interface, making this a sub-expression.
func (self UnlistenStmt) AppendExpr(text []byte) []byte {
	if self.Channel == `` {
		panic(errBuilder(`unlisten`, `channel`, `pass a channel name or use UnlistenAll`))
	}
	bui := Bui{text}
	bui.Str(`UNLISTEN`)
	if self.Channel == `*` {
		bui.Str(`*`)
	} else {
		bui.Ident(self.Channel)
	}
	return bui.Text
}

// Implement the `fmt.Stringer` interface. Panics on misuse.
func (self UnlistenStmt) String() string { return exprString(self) }

/*
Renders `NOTIFY "channel", 'payload'`. A nil payload renders no payload.
Strings are sent as-is; other values are encoded as JSON.
*/
func Notify(channel string, payload any) NotifyStmt { return NotifyStmt{channel, payload} }

type NotifyStmt struct {
	Channel string
	Payload any
}

// Implement the `Expr` interface, making this a sub-expression.
func (self NotifyStmt) AppendExpr(text []byte) []byte {
	if self.Channel == `` {
		panic(errBuilder(`notify`, `channel`, `pass a channel name`))
	}
	bui := Bui{text}
	bui.Str(`NOTIFY`)
	bui.Ident(self.Channel)

	switch val := self.Payload.(type) {
	case nil:
	case string:
		bui.Raw(`, `)
		bui.Text = appendQuoted(bui.Text, val)
	case []byte:
		bui.Raw(`, `)
		bui.Text = appendQuoted(bui.Text, string(val))
	default:
		bui.Raw(`, `)
		bui.Text = appendQuoted(bui.Text, string(marshalJson(val)))
	}
	return bui.Text
}

// Implement the `fmt.Stringer` interface. Panics on misuse.
func (self NotifyStmt) String() string { return exprString(self) }
