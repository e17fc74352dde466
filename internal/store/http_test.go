package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/billed/internal/bill"
)

var _ = Describe("HTTPClient", func() {
	var (
		server *ghttp.Server
		client *HTTPClient
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		server = ghttp.NewServer()
		var err error
		client, err = NewHTTPClient(server.URL(), WithBasicAuth("admin", "secret"))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	It("should reject relative base URLs", func() {
		_, err := NewHTTPClient("/api")
		Expect(err).To(HaveOccurred())
	})

	Describe("List", func() {
		var (
			bills []*bill.Bill
			err   error
		)

		JustBeforeEach(func() {
			bills, err = client.Bills().List(ctx, "a@a")
		})

		When("the API answers with bills", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.CombineHandlers(
					ghttp.VerifyRequest(http.MethodGet, "/api/bills", "email=a%40a"),
					ghttp.VerifyBasicAuth("admin", "secret"),
					ghttp.RespondWith(http.StatusOK, `[
						{"id": "b1", "email": "a@a", "type": "Transports", "date": "2004-04-04", "amount": 40000, "status": "pending", "fileUrl": "/api/bills/b1/file"},
						{"id": "b2", "email": "a@a", "type": "Transports", "date": "2003-03-03", "amount": 10000, "status": "accepted"}
					]`),
				))
			})

			It("should decode every bill", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(bills).To(HaveLen(2))
				Expect(bills[0].Date).To(Equal(bill.NewDate(2004, 4, 4)))
				Expect(bills[1].Status).To(Equal(bill.StatusAccepted))
			})

			It("should make receipt links absolute", func() {
				Expect(bills[0].FileURL).To(Equal(server.URL() + "/api/bills/b1/file"))
				Expect(bills[1].FileURL).To(BeEmpty())
			})
		})

		When("the API answers 404", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.RespondWith(http.StatusNotFound, "not found"))
			})

			It("should fail with Erreur 404", func() {
				Expect(err).To(MatchError("Erreur 404"))
				var apiErr *APIError
				Expect(err).To(BeAssignableToTypeOf(apiErr))
			})
		})

		When("the API answers 500", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, "boom"))
			})

			It("should fail with Erreur 500", func() {
				Expect(err).To(MatchError("Erreur 500"))
			})
		})
	})

	Describe("Create", func() {
		var (
			payload bill.Payload
			file    *bill.File
			created *bill.Bill
			err     error
		)

		BeforeEach(func() {
			payload = bill.Payload{
				Email:  "a@a",
				Type:   "Transports",
				Name:   "Vol Paris Londres",
				Amount: 34800,
				Date:   bill.NewDate(2023, 4, 28),
				VAT:    7000,
				Pct:    20,
			}
			file = &bill.File{Name: "testImage.jpeg", ContentType: "image/jpeg", Data: []byte("testImage")}

			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/api/bills"),
				func(w http.ResponseWriter, r *http.Request) {
					Expect(r.ParseMultipartForm(1 << 20)).To(Succeed())

					var got bill.Payload
					Expect(json.Unmarshal([]byte(r.FormValue("bill")), &got)).To(Succeed())
					Expect(got.Name).To(Equal("Vol Paris Londres"))
					Expect(got.Date).To(Equal(bill.NewDate(2023, 4, 28)))

					f, header, ferr := r.FormFile("file")
					Expect(ferr).NotTo(HaveOccurred())
					defer f.Close()
					data, _ := io.ReadAll(f)
					Expect(header.Filename).To(Equal("testImage.jpeg"))
					Expect(header.Header.Get("Content-Type")).To(Equal("image/jpeg"))
					Expect(string(data)).To(Equal("testImage"))
				},
				ghttp.RespondWith(http.StatusCreated, `{"id": "new", "name": "Vol Paris Londres", "status": "pending", "date": "2023-04-28", "fileUrl": "/api/bills/new/file"}`),
			))
		})

		JustBeforeEach(func() {
			created, err = client.Bills().Create(ctx, payload, file)
		})

		It("should post the bill and its receipt", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(created.ID).To(Equal("new"))
			Expect(created.FileURL).To(Equal(server.URL() + "/api/bills/new/file"))
		})
	})

	Describe("Create rejected by validation", func() {
		It("should expose the failing fields", func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/api/bills"),
				ghttp.RespondWith(http.StatusBadRequest, `{"error": "amount: Le montant doit être positif", "fields": [{"field": "amount", "message": "Le montant doit être positif"}]}`),
			))

			_, err := client.Bills().Create(ctx, bill.Payload{Email: "a@a"}, nil)
			Expect(err).To(MatchError("Erreur 400"))

			var apiErr *APIError
			Expect(errors.As(err, &apiErr)).To(BeTrue())
			Expect(apiErr.Message).To(Equal("amount: Le montant doit être positif"))

			var verrs bill.ValidationErrors
			Expect(errors.As(err, &verrs)).To(BeTrue())
			Expect(verrs.Fields()).To(HaveKeyWithValue("amount", "Le montant doit être positif"))
		})

		It("should not invent fields for a plain error body", func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, "boom"))

			_, err := client.Bills().Create(ctx, bill.Payload{Email: "a@a"}, nil)
			var verrs bill.ValidationErrors
			Expect(errors.As(err, &verrs)).To(BeFalse())
		})
	})

	Describe("Update", func() {
		It("should patch the bill", func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPatch, "/api/bills/b1"),
				ghttp.VerifyJSON(`{"status": "refused", "commentAdmin": "no receipt"}`),
				ghttp.RespondWith(http.StatusOK, `{"id": "b1", "status": "refused", "date": "2004-04-04"}`),
			))

			updated, err := client.Bills().Update(ctx, "b1", bill.Update{Status: bill.StatusRefused, CommentAdmin: "no receipt"})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Status).To(Equal(bill.StatusRefused))
		})
	})

	Describe("Scan", func() {
		When("scanning is disabled server-side", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.CombineHandlers(
					ghttp.VerifyRequest(http.MethodPost, "/api/bills/scan"),
					ghttp.RespondWith(http.StatusNotImplemented, `{"error": "receipt scanner disabled"}`),
				))
			})

			It("should return an API error", func() {
				_, err := client.Bills().Scan(ctx, &bill.File{Name: "a.png", Data: []byte("x")})
				Expect(err).To(MatchError("Erreur 501"))
			})
		})

		When("the receipt is readable", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.RespondWith(http.StatusOK, `{"name": "SNCF", "date": "2023-04-28", "amount": 34800}`))
			})

			It("should decode the suggestion", func() {
				s, err := client.Bills().Scan(ctx, &bill.File{Name: "a.png", Data: []byte("x")})
				Expect(err).NotTo(HaveOccurred())
				Expect(s.Name).To(Equal("SNCF"))
				Expect(s.Amount).To(Equal(bill.Money(34800)))
			})
		})
	})
})
