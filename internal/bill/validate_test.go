package bill

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Validation", func() {
	DescribeTable("AcceptedReceipt",
		func(filename string, expected bool) {
			Expect(AcceptedReceipt(filename)).To(Equal(expected))
		},
		Entry("jpg", "receipt.jpg", true),
		Entry("jpeg", "testImage.jpeg", true),
		Entry("png", "scan.png", true),
		Entry("upper case", "SCAN.PNG", true),
		Entry("pdf", "invoice.pdf", false),
		Entry("heic", "photo.heic", false),
		Entry("no extension", "receipt", false),
		Entry("extension only in the middle", "receipt.png.txt", false),
	)

	Describe("Payload.Validate", func() {
		var (
			payload Payload
			err     error
		)

		BeforeEach(func() {
			payload = Payload{
				Email:  "employee@test.tld",
				Type:   "Transports",
				Name:   "Vol Paris Londres",
				Amount: 34800,
				Date:   NewDate(2023, time.April, 28),
				VAT:    7000,
				Pct:    20,
			}
		})

		JustBeforeEach(func() {
			err = payload.Validate()
		})

		It("should accept a complete payload", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		When("several fields are wrong", func() {
			BeforeEach(func() {
				payload.Type = "Casino"
				payload.Date = Date{}
				payload.Amount = 0
				payload.VAT = -1
				payload.Pct = 101
			})

			It("should report every field", func() {
				var verrs ValidationErrors
				Expect(errors.As(err, &verrs)).To(BeTrue())
				Expect(verrs.Fields()).To(HaveKey("expense-type"))
				Expect(verrs.Fields()).To(HaveKey("datepicker"))
				Expect(verrs.Fields()).To(HaveKey("amount"))
				Expect(verrs.Fields()).To(HaveKey("vat"))
				Expect(verrs.Fields()).To(HaveKey("pct"))
			})
		})

		When("the name is empty", func() {
			BeforeEach(func() {
				payload.Name = ""
			})

			It("should still be valid", func() {
				Expect(err).NotTo(HaveOccurred())
			})
		})
	})

	It("should keep the first message per field", func() {
		var verrs ValidationErrors
		verrs.Add("amount", "first")
		verrs.Add("amount", "second")
		Expect(verrs.Fields()).To(Equal(map[string]string{"amount": "first"}))
		Expect(verrs.Error()).To(Equal("amount: first; amount: second"))
	})

	It("should return nil when nothing failed", func() {
		var verrs ValidationErrors
		Expect(verrs.Err()).To(BeNil())
	})
})
