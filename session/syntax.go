package session

// CheckSyntax parses source with a scratch parser and reports its
// diagnostics against the unchanged state of the session. Pending errors
// are not touched.
func (s *Session) CheckSyntax(source string) Result {
	var parser interface{ Parse(string) error }
	if s.newParser != nil {
		parser = s.newParser()
	}
	if parser == nil {
		return s.result(ErrSyntaxUnchecked)
	}

	errs := ParseErrorsFrom(parser.Parse(source))
	s.logger.Debug("syntax checked", "diagnostics", len(errs))

	var r Result
	if hasFatal(errs) {
		r = s.result(ErrParsing)
	} else {
		r = s.result(nil)
	}
	r.ParsingErrors = append(r.ParsingErrors, errs...)

	return r
}
