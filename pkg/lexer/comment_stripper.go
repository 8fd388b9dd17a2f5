package lexer

// CommentStripper wraps a Lexer and silently drops Comment tokens from
// both Peek and Next, so the parser never sees them.
type CommentStripper struct {
	inner *Lexer
}

// Strip wraps l so comments never surface.
func Strip(l *Lexer) *CommentStripper {
	return &CommentStripper{inner: l}
}

func (c *CommentStripper) Peek() (Token, error) {
	for {
		tok, err := c.inner.Peek()
		if err != nil {
			return Token{}, err
		}
		if tok.Kind != Comment {
			return tok, nil
		}
		if _, err := c.inner.Next(); err != nil {
			return Token{}, err
		}
	}
}

func (c *CommentStripper) Next() (Token, error) {
	for {
		tok, err := c.inner.Next()
		if err != nil {
			return Token{}, err
		}
		if tok.Kind != Comment {
			return tok, nil
		}
	}
}
