package sqlkit

// Prealloc tool. Makes a `Bui` with the specified capacity of the text buffer.
func MakeBui(textCap int) Bui {
	return Bui{make([]byte, 0, textCap)}
}

/*
Short for "builder". Tiny shortcut for building SQL text. Used internally by
every `Expr` implementation in this package. Automatically delimits adjacent
words with spaces, skipping the space after an opening delimiter such as "("
and before a closing delimiter such as ")" or ",".
*/
type Bui struct {
	Text []byte
}

// Returns the text as-is. Useful shortcut for passing it to `AppendExpr`.
func (self Bui) Get() []byte { return self.Text }

// Replaces the text with the input.
func (self *Bui) Set(text []byte) { self.Text = text }

// Returns inner text as a string, performing a free cast.
func (self Bui) String() string { return bytesToMutableString(self.Text) }

// Adds a space if the preceding text doesn't already end with a terminator.
func (self *Bui) Space() { self.Text = maybeAppendSpace(self.Text) }

// Appends the provided string, delimiting it from the previous text with a
// space if necessary.
func (self *Bui) Str(val string) { self.Text = appendMaybeSpaced(self.Text, val) }

// Appends the provided string without any delimiting.
func (self *Bui) Raw(val string) { self.Text = append(self.Text, val...) }

/*
Appends an expression, delimited from the preceding text by a space, if
necessary. Nil input is a nop.
*/
func (self *Bui) Expr(val Expr) {
	if val != nil {
		self.Space()
		self.Set(val.AppendExpr(self.Get()))
	}
}

// Appends a sub-expression wrapped in parens. Nil input is a nop.
func (self *Bui) SubExpr(val Expr) {
	if val != nil {
		self.Str(`(`)
		self.Set(val.AppendExpr(self.Get()))
		self.Raw(`)`)
	}
}

// Appends each expr by calling `(*Bui).Expr`.
func (self *Bui) Exprs(vals ...Expr) {
	for _, val := range vals {
		self.Expr(val)
	}
}

// Same as `(*Bui).Exprs` but catches panics.
func (self *Bui) CatchExprs(vals ...Expr) (err error) {
	defer rec(&err)
	self.Exprs(vals...)
	return
}

// Appends a quoted identifier, panicking on an empty name.
func (self *Bui) Ident(name string) {
	self.Space()
	self.Text = appendIdent(self.Text, name)
}

// Appends a possibly schema-qualified name such as "public.users", quoting
// each dot-separated part.
func (self *Bui) Name(name string) {
	self.Space()
	self.Text = appendDotted(self.Text, name)
}

// Appends comma-separated quoted identifiers.
func (self *Bui) Idents(names []string) {
	for ind, name := range names {
		if ind > 0 {
			self.Raw(`, `)
		}
		self.Ident(name)
	}
}

// Appends a parenthesized comma-separated identifier list.
func (self *Bui) IdentList(names []string) {
	self.Str(`(`)
	self.Idents(names)
	self.Raw(`)`)
}

// Appends a literal, via the same rules as `%L`.
func (self *Bui) Lit(val any) {
	self.Space()
	self.Text = appendLiteral(self.Text, val, true)
}

// Appends a value: expressions verbatim, sub-queries parenthesized, anything
// else as a literal.
func (self *Bui) Any(val any) {
	sub, _ := val.(subquery)
	if sub != nil {
		self.SubExpr(sub)
		return
	}

	impl, _ := val.(Expr)
	if impl != nil {
		self.Expr(impl)
		return
	}

	self.Lit(val)
}
