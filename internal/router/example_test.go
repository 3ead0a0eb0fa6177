package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/patric-chuzhbe/wikisubs/internal/models"
)

func ExampleRouter_GetPing() {
	server, _, _ := setupTestRouter()
	defer server.Close()

	resp, err := http.Get(server.URL + "/ping")
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	fmt.Println("Status Code:", resp.StatusCode)

	// Output:
	// Status Code: 200
}

func ExampleRouter_PostApiauthsignin() {
	server, _, _ := setupTestRouter()
	defer server.Close()

	body, err := json.Marshal(models.SignInRequest{Email: "reader@example.com"})
	if err != nil {
		panic(err)
	}

	resp, err := http.Post(server.URL+"/api/auth/signin", "application/json", bytes.NewReader(body))
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	var result models.SignInResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		panic(err)
	}

	fmt.Println("Status Code:", resp.StatusCode)
	fmt.Println("Has token:", result.Token != "")
	fmt.Println("Subscriptions:", result.User.Subscriptions)

	// Output:
	// Status Code: 200
	// Has token: true
	// Subscriptions: [true-random brand-new]
}

func ExampleRouter_PutApisubscriptions() {
	server, _, issuer := setupTestRouter()
	defer server.Close()

	body, err := json.Marshal(models.SignInRequest{Email: "reader@example.com"})
	if err != nil {
		panic(err)
	}
	signInResp, err := http.Post(server.URL+"/api/auth/signin", "application/json", bytes.NewReader(body))
	if err != nil {
		panic(err)
	}
	signInResp.Body.Close()

	token, err := issuer.Issue("reader@example.com")
	if err != nil {
		panic(err)
	}

	req, err := http.NewRequest(http.MethodPut, server.URL+"/api/subscriptions", bytes.NewBufferString(`{"subscriptions":["science","history"]}`))
	if err != nil {
		panic(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		panic(err)
	}

	fmt.Println("Status Code:", resp.StatusCode)
	fmt.Print("Body: ", string(b))

	// Output:
	// Status Code: 200
	// Body: {"success":true,"subscriptions":["science","history"]}
}

func ExampleRouter_GetApisubscriptions() {
	server, _, _ := setupTestRouter()
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/subscriptions")
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		panic(err)
	}

	fmt.Println("Status Code:", resp.StatusCode)
	fmt.Print("Body: ", string(b))

	// Output:
	// Status Code: 401
	// Body: {"success":false,"error":"No token provided"}
}

func ExampleRouter_GetApisubscriptionsoptions() {
	server, _, _ := setupTestRouter()
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/subscriptions/options")
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	var result models.SubscriptionOptionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		panic(err)
	}

	for _, opt := range result.Options {
		fmt.Printf("%s: %s\n", opt.ID, opt.Name)
	}

	// Output:
	// brand-new: Brand new
	// culture: Culture
	// history: History
	// science: Science
	// trending: Trending
	// true-random: True random
}
