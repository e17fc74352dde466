package ui

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/billed/internal/bill"
	"github.com/zombor/billed/internal/session"
)

func readBody(resp *http.Response) string {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return string(data)
}

func newBillBody(fields map[string]string, filename string) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		Expect(writer.WriteField(k, v)).To(Succeed())
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write([]byte("testImage"))
		Expect(err).NotTo(HaveOccurred())
	}
	Expect(writer.Close()).To(Succeed())
	return body, writer.FormDataContentType()
}

var _ = Describe("Server", func() {
	var (
		st       *fakeStore
		server   *Server
		ts       *httptest.Server
		client   *http.Client
		db       *bill.BoltDB
		receipts *bill.Service
		receipt  *bill.Bill
	)

	loginAs := func(email string, userType session.UserType) {
		resp, err := client.PostForm(ts.URL+"/login", url.Values{"email": {email}, "password": {"secret"}, "type": {string(userType)}})
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
		Expect(resp.Header.Get("Location")).To(Equal(PathBills))
	}

	login := func(email string) {
		loginAs(email, session.Employee)
	}

	BeforeEach(func() {
		st = newFakeStore()

		tempDir := GinkgoT().TempDir()
		var err error
		db, err = bill.NewBoltDB(filepath.Join(tempDir, "bills.db"))
		Expect(err).NotTo(HaveOccurred())
		storage, err := bill.NewLocalStorage(filepath.Join(tempDir, "receipts"))
		Expect(err).NotTo(HaveOccurred())
		receipts = bill.NewService(db, storage, nil)

		receipt, err = receipts.CreateBill(context.Background(), bill.Payload{
			Email:  "a@a",
			Type:   "Transports",
			Name:   "Vol",
			Amount: 34800,
			Date:   bill.NewDate(2023, 4, 28),
		}, &bill.File{Name: "r.png", ContentType: "text/html", Data: []byte("<script>alert(1)</script>")})
		Expect(err).NotTo(HaveOccurred())
	})

	JustBeforeEach(func() {
		server = NewServer(st, receipts, session.NewMemoryProvider(), mustViews())
		ts = httptest.NewServer(server)
		jar, err := cookiejar.New(nil)
		Expect(err).NotTo(HaveOccurred())
		client = &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	})

	AfterEach(func() {
		ts.Close()
		db.Close()
	})

	Describe("login", func() {
		It("should render the login form to anonymous visitors", func() {
			resp, err := client.Get(ts.URL + "/")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(readBody(resp)).To(ContainSubstring(`data-testid="employee-email-input"`))
		})

		It("should issue a session cookie", func() {
			resp, err := client.Get(ts.URL + "/")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.Cookies()).To(ContainElement(HaveField("Name", sessionCookie)))
			Expect(resp.Header.Get("X-Request-ID")).NotTo(BeEmpty())
		})

		It("should reject an invalid email", func() {
			resp, err := client.PostForm(ts.URL+"/login", url.Values{"email": {"nobody"}})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(readBody(resp)).To(ContainSubstring("Email invalide"))
		})

		It("should send signed-in users to their bills", func() {
			login("a@a")
			resp, err := client.Get(ts.URL + "/")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
			Expect(resp.Header.Get("Location")).To(Equal(PathBills))
		})

		It("should forget the user on logout", func() {
			login("a@a")
			resp, err := client.Get(ts.URL + "/logout")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.Header.Get("Location")).To(Equal(PathLogin))

			resp, err = client.Get(ts.URL + PathBills)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.Header.Get("Location")).To(Equal(PathLogin))
		})
	})

	Describe("bills page", func() {
		It("should redirect anonymous visitors to login", func() {
			resp, err := client.Get(ts.URL + PathBills)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
			Expect(resp.Header.Get("Location")).To(Equal(PathLogin))
		})

		It("should render the four bills with the window icon active", func() {
			login("a@a")
			resp, err := client.Get(ts.URL + PathBills)
			Expect(err).NotTo(HaveOccurred())
			body := readBody(resp)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body).To(ContainSubstring("Mes notes de frais"))
			Expect(strings.Count(body, `data-testid="icon-eye"`)).To(Equal(4))
			Expect(body).To(ContainSubstring(`data-testid="icon-window" class="nav-icon active-icon"`))
			Expect(st.listEmails).To(Equal([]string{"a@a"}))
		})

		It("should navigate to the new bill page from the button", func() {
			login("a@a")
			resp, err := client.Get(ts.URL + "/employee/bills/new")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
			Expect(resp.Header.Get("Location")).To(Equal(PathNewBill))
		})

		It("should render the receipt modal", func() {
			login("a@a")
			resp, err := client.Get(ts.URL + "/employee/bills/receipt?url=" + url.QueryEscape("/api/bills/1/file"))
			Expect(err).NotTo(HaveOccurred())
			body := readBody(resp)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body).To(ContainSubstring(`data-testid="modaleFileEmployee"`))
			Expect(body).To(ContainSubstring(`src="/api/bills/1/file"`))
		})

		It("should require a receipt url", func() {
			login("a@a")
			resp, err := client.Get(ts.URL + "/employee/bills/receipt")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("receipt files", func() {
		var fileURL string

		JustBeforeEach(func() {
			fileURL = ts.URL + receipt.FileURL
		})

		It("should send anonymous visitors to login", func() {
			resp, err := client.Get(fileURL)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
			Expect(resp.Header.Get("Location")).To(Equal(PathLogin))
		})

		It("should serve the owner's receipt as the image its name says", func() {
			login("a@a")
			resp, err := client.Get(fileURL)
			Expect(err).NotTo(HaveOccurred())
			body := readBody(resp)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("image/png"))
			Expect(resp.Header.Get("X-Content-Type-Options")).To(Equal("nosniff"))
			Expect(body).To(Equal("<script>alert(1)</script>"))
		})

		It("should hide the receipt from other employees", func() {
			login("b@b")
			resp, err := client.Get(fileURL)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("should serve any receipt to admins", func() {
			loginAs("admin@billed", session.Admin)
			resp, err := client.Get(fileURL)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("should answer 404 for unknown bills", func() {
			login("a@a")
			resp, err := client.Get(ts.URL + bill.FileURL("missing"))
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("should not expose the rest of the bills API", func() {
			resp, err := client.Get(ts.URL + "/api/bills")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))

			req, err := http.NewRequest(http.MethodPatch, ts.URL+"/api/bills/"+receipt.ID, strings.NewReader(`{"status": "accepted"}`))
			Expect(err).NotTo(HaveOccurred())
			resp, err = client.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))

			stored, err := receipts.GetBill(receipt.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Status).To(Equal(bill.StatusPending))
		})

		When("receipts are served by a remote API", func() {
			JustBeforeEach(func() {
				ts.Close()
				ts = httptest.NewServer(NewServer(st, nil, session.NewMemoryProvider(), mustViews()))
				fileURL = ts.URL + receipt.FileURL
			})

			It("should not serve receipts itself", func() {
				login("a@a")
				resp, err := client.Get(fileURL)
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			})
		})
	})

	Describe("new bill page", func() {
		It("should render the form with the mail icon active", func() {
			login("a@a")
			resp, err := client.Get(ts.URL + PathNewBill)
			Expect(err).NotTo(HaveOccurred())
			body := readBody(resp)
			Expect(body).To(ContainSubstring(`data-testid="new-bill-title"> Envoyer une note de frais </div>`))
			Expect(body).To(ContainSubstring(`data-testid="icon-mail" class="nav-icon active-icon"`))
			Expect(body).To(ContainSubstring(`data-testid="icon-window" class="nav-icon"`))
		})

		It("should check a chosen file", func() {
			login("a@a")
			body, contentType := newBillBody(nil, "testFile.pdf")
			resp, err := client.Post(ts.URL+"/employee/bill/new/file", contentType, body)
			Expect(err).NotTo(HaveOccurred())
			out := readBody(resp)
			Expect(out).To(ContainSubstring(`data-testid="file-error-message"`))
			Expect(out).NotTo(ContainSubstring("hidden-message"))
		})

		It("should submit the form and land on the bills", func() {
			login("a@a")
			body, contentType := newBillBody(map[string]string{
				"expense-type": "Transports",
				"expense-name": "Vol Paris Londres",
				"datepicker":   "2023-04-28",
				"amount":       "348",
				"vat":          "70",
				"pct":          "20",
			}, "testImage.jpeg")

			resp, err := client.Post(ts.URL+PathNewBill, contentType, body)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
			Expect(resp.Header.Get("Location")).To(Equal(PathBills))
			Expect(st.created).To(HaveLen(1))
			Expect(st.files[0].Name).To(Equal("testImage.jpeg"))

			resp, err = client.Get(ts.URL + resp.Header.Get("Location"))
			Expect(err).NotTo(HaveOccurred())
			Expect(readBody(resp)).To(ContainSubstring("Mes notes de frais"))
		})

		It("should re-render the form on invalid input", func() {
			login("a@a")
			body, contentType := newBillBody(map[string]string{
				"expense-type": "Transports",
				"datepicker":   "2023-04-28",
				"amount":       "",
			}, "")

			resp, err := client.Post(ts.URL+PathNewBill, contentType, body)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(readBody(resp)).To(ContainSubstring(`data-testid="amount-error"`))
			Expect(st.created).To(BeEmpty())
		})
	})

	Describe("infrastructure", func() {
		It("should serve static assets", func() {
			resp, err := client.Get(ts.URL + "/static/app.css")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(readBody(resp)).To(ContainSubstring(".hidden-message"))
		})

		It("should expose metrics", func() {
			login("a@a")
			resp, err := client.Get(ts.URL + "/metrics")
			Expect(err).NotTo(HaveOccurred())
			Expect(readBody(resp)).To(ContainSubstring("billed_ui_requests_total"))
		})


		It("should render a 404 for unknown paths", func() {
			resp, err := client.Get(ts.URL + "/employee/unknown")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			Expect(readBody(resp)).To(ContainSubstring("Page introuvable"))
		})
	})
})
