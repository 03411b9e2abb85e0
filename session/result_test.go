package session

import (
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/m64sim/asm"
)

// brokenDiagnostic fails while its position is read.
type brokenDiagnostic struct{}

func (brokenDiagnostic) Error() string { return "broken" }
func (brokenDiagnostic) Line() int     { panic("position lost") }
func (brokenDiagnostic) Column() int   { return 0 }
func (brokenDiagnostic) Warning() bool { return false }

var _ = Describe("ParseErrorsFrom", func() {
	It("should return nil for a clean parse", func() {
		Expect(ParseErrorsFrom(nil)).To(BeNil())
	})

	It("should keep the order and count of an error list", func() {
		list := asm.ErrorList{
			{Row: 1, Col: 1, Err: asm.ErrLabelDuplicate},
			{Row: 5, Col: 9, Err: asm.ErrValueRange},
			{Row: 7, Col: 1, Err: asm.ErrHaltMissing, IsWarning: true},
		}

		errs := ParseErrorsFrom(list)

		Expect(errs).To(HaveLen(3))
		Expect(errs[0]).To(Equal(ParseError{
			Row: 1, Column: 1, Description: asm.ErrLabelDuplicate.Error(),
		}))
		Expect(errs[1].Row).To(Equal(5))
		Expect(errs[1].Column).To(Equal(9))
		Expect(errs[2].IsWarning).To(BeTrue())
	})

	It("should use the wrapped message as description", func() {
		list := asm.ErrorList{{
			Row: 2,
			Col: 3,
			Err: fmt.Errorf("%w: FOO", asm.ErrUnknownInstruction),
		}}

		errs := ParseErrorsFrom(list)

		Expect(errs[0].Description).To(Equal("unknown instruction: FOO"))
	})

	It("should flatten joined errors", func() {
		err := errors.Join(
			&asm.Error{Row: 3, Col: 2, Err: asm.ErrOperandCount},
			errors.New("parser gave up"),
		)

		errs := ParseErrorsFrom(err)

		Expect(errs).To(HaveLen(2))
		Expect(errs[0].Row).To(Equal(3))
		Expect(errs[1]).To(Equal(ParseError{Description: "parser gave up"}))
	})

	It("should convert a single error", func() {
		errs := ParseErrorsFrom(&asm.Error{Row: 4, Col: 1, Err: asm.ErrLabelMissing})

		Expect(errs).To(HaveLen(1))
		Expect(errs[0].Row).To(Equal(4))
		Expect(errs[0].Description).To(Equal(asm.ErrLabelMissing.Error()))
	})

	It("should convert each element independently", func() {
		err := errors.Join(
			brokenDiagnostic{},
			&asm.Error{Row: 9, Col: 1, Err: asm.ErrValueInvalid},
		)

		errs := ParseErrorsFrom(err)

		Expect(errs).To(HaveLen(2))
		Expect(errs[0].Description).To(Equal("position lost"))
		Expect(errs[1].Row).To(Equal(9))
	})
})

var _ = Describe("attachParseErrors", func() {
	It("should leave the result unchanged without errors", func() {
		r := Result{Success: true, ParsingErrors: []ParseError{}}

		Expect(attachParseErrors(r, nil)).To(Equal(r))
	})

	It("should keep the outcome of the result", func() {
		r := Result{Success: true, ParsingErrors: []ParseError{}}

		r = attachParseErrors(r, asm.ErrorList{{Row: 1, Col: 1, Err: asm.ErrHaltMissing}})

		Expect(r.Success).To(BeTrue())
		Expect(r.ParsingErrors).To(HaveLen(1))
	})
})
