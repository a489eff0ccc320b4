package scaffold

const readmeTemplate = `# {{ .AppName }}

{{ .Description }}

Generated for the FHIR server at {{ .ServerURL }} (FHIR {{ .FHIRVersion }}).
Stack: ` + "`{{ .Stack }}`" + `

## Resources
{{ range .Resources }}
- **{{ .Resource }}**{{ if .Interactions }}: {{ oneline (join .Interactions ", ") }}{{ end }}
{{- end }}

The server declares {{ len .SupportedResources }} resource types in total.
See ` + "`fhir-app.yaml`" + ` for the full configuration and ` + "`openapi.json`" + `
for the proxied routes.
{{ if .Features }}
## Features
{{ range .Features }}
- {{ . }}
{{- end }}
{{ end }}`

func renderNextFHIRClient(c Context) ([]File, error) {
	var fs fileSet
	fs.add("package.json", nextPackageJSON, c)
	fs.add(".env.example", envExample, c)
	fs.add("next.config.js", nextConfig, c)
	fs.add("src/lib/fhir.ts", nextFHIRLib, c)
	fs.add("src/pages/index.tsx", nextIndexPage, c)
	for _, r := range c.Resources() {
		fs.add("src/pages/"+r.Slug()+".tsx", nextResourcePage, r)
	}
	return fs.result()
}

func renderExpressNode(c Context) ([]File, error) {
	var fs fileSet
	fs.add("package.json", expressPackageJSON, c)
	fs.add(".env.example", envExample, c)
	fs.add("src/server.js", expressServer, c)
	for _, r := range c.Resources() {
		fs.add("src/routes/"+r.Slug()+".js", expressRoute, r)
	}
	return fs.result()
}

func renderPythonFastAPI(c Context) ([]File, error) {
	var fs fileSet
	fs.add("requirements.txt", fastAPIRequirements, c)
	fs.add(".env.example", envExample, c)
	fs.add("app/__init__.py", "", c)
	fs.add("app/main.py", fastAPIMain, c)
	fs.add("app/routers/__init__.py", "", c)
	for _, r := range c.Resources() {
		fs.add("app/routers/"+r.Module()+".py", fastAPIRouter, r)
	}
	return fs.result()
}

func renderGoGin(c Context) ([]File, error) {
	var fs fileSet
	fs.add("go.mod", ginGoMod, c)
	fs.add(".env.example", envExample, c)
	fs.add("main.go", ginMain, c)
	fs.add("fhir/client.go", ginClient, c)
	for _, r := range c.Resources() {
		fs.add("handlers/"+r.Slug()+".go", ginHandler, r)
	}
	return fs.result()
}

const envExample = `FHIR_SERVER_URL={{ .ServerURL }}
FHIR_VERSION={{ .FHIRVersion }}
`

// Next.js + fhirclient

const nextPackageJSON = `{
  "name": {{ quote .Slug }},
  "version": "0.1.0",
  "private": true,
  "description": {{ quote .Description }},
  "scripts": {
    "dev": "next dev",
    "build": "next build",
    "start": "next start"
  },
  "dependencies": {
    "fhirclient": "^2.5.2",
    "next": "^14.2.0",
    "react": "^18.3.0",
    "react-dom": "^18.3.0"
  }
}
`

const nextConfig = `/** @type {import('next').NextConfig} */
module.exports = {
  reactStrictMode: true,
  env: {
    FHIR_SERVER_URL: process.env.FHIR_SERVER_URL || {{ quote .ServerURL }},
  },
};
`

const nextFHIRLib = `import FHIR from "fhirclient";

export const serverUrl = process.env.FHIR_SERVER_URL || {{ quote .ServerURL }};

export const client = FHIR.client({ serverUrl });

export const resources = [{{ range $i, $r := .Resources }}{{ if $i }}, {{ end }}{{ quote $r.Resource }}{{ end }}];

export async function search(resourceType: string, params: Record<string, string> = {}) {
  const query = new URLSearchParams(params).toString();
  return client.request(query ? resourceType + "?" + query : resourceType);
}

export async function read(resourceType: string, id: string) {
  return client.request(resourceType + "/" + id);
}
`

const nextIndexPage = `import Link from "next/link";

export default function Home() {
  return (
    <main>
      <h1>{ {{ quote .AppName }} }</h1>
      <p>{ {{ quote .Description }} }</p>
      <ul>
{{- range .Resources }}
        <li><Link href="/{{ .Slug }}">{{ .Resource }}</Link></li>
{{- end }}
      </ul>
    </main>
  );
}
`

const nextResourcePage = `import { useEffect, useState } from "react";
import { search } from "../lib/fhir";

// Search parameters declared by the server: {{ if .SearchParams }}{{ oneline (join .SearchParams ", ") }}{{ else }}none{{ end }}
export default function {{ .Ident }}Page() {
  const [entries, setEntries] = useState<any[]>([]);
  const [error, setError] = useState<string | null>(null);

  useEffect(() => {
{{- if .Supports "search-type" }}
    search({{ quote .Resource }})
      .then((bundle: any) => setEntries(bundle.entry || []))
      .catch((e: Error) => setError(e.message));
{{- else }}
    setError({{ quote (printf "%s does not support search on this server" .Resource) }});
{{- end }}
  }, []);

  return (
    <main>
      <h1>{{ .Resource }}</h1>
      {error && <p role="alert">{error}</p>}
      <ul>
        {entries.map((e: any) => (
          <li key={e.resource.id}>{e.resource.id}</li>
        ))}
      </ul>
    </main>
  );
}
`

// Node.js Express

const expressPackageJSON = `{
  "name": {{ quote .Slug }},
  "version": "0.1.0",
  "private": true,
  "description": {{ quote .Description }},
  "main": "src/server.js",
  "scripts": {
    "start": "node src/server.js"
  },
  "dependencies": {
    "dotenv": "^16.4.0",
    "express": "^4.19.0"
  }
}
`

const expressServer = `require("dotenv").config();
const express = require("express");

const app = express();
app.use(express.json({ type: ["application/json", "application/fhir+json"] }));

const serverUrl = process.env.FHIR_SERVER_URL || {{ quote .ServerURL }};
app.locals.fhirServerUrl = serverUrl;
{{ range .Resources }}
app.use("/api/fhir/{{ .Resource }}", require("./routes/{{ .Slug }}"));
{{- end }}

const port = process.env.PORT || 3000;
app.listen(port, () => {
  console.log({{ quote .AppName }} + " listening on " + port + ", proxying " + serverUrl);
});
`

const expressRoute = `const express = require("express");

const router = express.Router();
const headers = { Accept: "application/fhir+json", "Content-Type": "application/fhir+json" };

function target(req, suffix) {
  return req.app.locals.fhirServerUrl + "/{{ .Resource }}" + suffix;
}

async function forward(res, response) {
  res.status(response.status).json(await response.json());
}
{{ if .Supports "search-type" }}
router.get("/", async (req, res, next) => {
  try {
    const query = new URLSearchParams(req.query).toString();
    await forward(res, await fetch(target(req, query ? "?" + query : ""), { headers }));
  } catch (err) {
    next(err);
  }
});
{{ end }}
{{- if .Supports "read" }}
router.get("/:id", async (req, res, next) => {
  try {
    await forward(res, await fetch(target(req, "/" + req.params.id), { headers }));
  } catch (err) {
    next(err);
  }
});
{{ end }}
{{- if .Supports "create" }}
router.post("/", async (req, res, next) => {
  try {
    await forward(res, await fetch(target(req, ""), { method: "POST", headers, body: JSON.stringify(req.body) }));
  } catch (err) {
    next(err);
  }
});
{{ end }}
{{- if .Supports "update" }}
router.put("/:id", async (req, res, next) => {
  try {
    await forward(res, await fetch(target(req, "/" + req.params.id), { method: "PUT", headers, body: JSON.stringify(req.body) }));
  } catch (err) {
    next(err);
  }
});
{{ end }}
module.exports = router;
`

// Python FastAPI

const fastAPIRequirements = `fastapi>=0.110
uvicorn>=0.29
httpx>=0.27
python-dotenv>=1.0
fhir.resources>=7.1
`

const fastAPIMain = `import os

from dotenv import load_dotenv
from fastapi import FastAPI

{{ range .Resources }}from app.routers import {{ .Module }}
{{ end }}
load_dotenv()

FHIR_SERVER_URL = os.getenv("FHIR_SERVER_URL", {{ quote .ServerURL }})

app = FastAPI(title={{ quote .AppName }}, description={{ quote .Description }})
{{ range .Resources }}
app.include_router({{ .Module }}.router, prefix={{ quote (printf "/api/fhir/%s" .Resource) }}, tags=[{{ quote .Resource }}])
{{- end }}
`

const fastAPIRouter = `import os

import httpx
from fastapi import APIRouter, Request

router = APIRouter()

BASE = os.getenv("FHIR_SERVER_URL", {{ quote .ServerURL }}) + {{ quote (printf "/%s" .Resource) }}
HEADERS = {"Accept": "application/fhir+json"}
# Search parameters: {{ if .SearchParams }}{{ oneline (join .SearchParams ", ") }}{{ else }}none declared{{ end }}
{{ if .Supports "search-type" }}

@router.get("/")
async def search_{{ .Module }}(request: Request):
    async with httpx.AsyncClient() as client:
        resp = await client.get(BASE, params=dict(request.query_params), headers=HEADERS)
        return resp.json()
{{ end }}
{{- if .Supports "read" }}

@router.get("/{resource_id}")
async def read_{{ .Module }}(resource_id: str):
    async with httpx.AsyncClient() as client:
        resp = await client.get(BASE + "/" + resource_id, headers=HEADERS)
        return resp.json()
{{ end }}`

// Go Gin

const ginGoMod = `module {{ .Slug }}

go 1.22

require github.com/gin-gonic/gin v1.10.1
`

const ginMain = `package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"{{ .Slug }}/fhir"
	"{{ .Slug }}/handlers"
)

func main() {
	serverURL := os.Getenv("FHIR_SERVER_URL")
	if serverURL == "" {
		serverURL = {{ quote .ServerURL }}
	}
	client := fhir.NewClient(serverURL)

	r := gin.Default()
	api := r.Group("/api/fhir")
{{- range .Resources }}
	handlers.Register{{ .Ident }}(api.Group("/{{ .Resource }}"), client)
{{- end }}

	log.Fatal(r.Run(":8080"))
}
`

const ginClient = `package fhir

import (
	"io"
	"net/http"
	"time"
)

// Client forwards requests to the FHIR server.
type Client struct {
	base string
	http *http.Client
}

func NewClient(base string) *Client {
	return &Client{base: base, http: &http.Client{Timeout: 30 * time.Second}}
}

// Get fetches path relative to the server base and returns status and body.
func (c *Client) Get(path, rawQuery string) (int, []byte, error) {
	u := c.base + path
	if rawQuery != "" {
		u += "?" + rawQuery
	}
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/fhir+json")
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	return resp.StatusCode, body, err
}
`

const ginHandler = `package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"{{ .Context.Slug }}/fhir"
)

// Register{{ .Ident }} wires the {{ .Resource }} routes.
// Declared interactions: {{ if .Interactions }}{{ oneline (join .Interactions ", ") }}{{ else }}none{{ end }}
func Register{{ .Ident }}(g *gin.RouterGroup, client *fhir.Client) {
{{- if .Supports "search-type" }}
	g.GET("", func(c *gin.Context) {
		status, body, err := client.Get("/{{ .Resource }}", c.Request.URL.RawQuery)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.Data(status, "application/fhir+json", body)
	})
{{- end }}
{{- if .Supports "read" }}
	g.GET("/:id", func(c *gin.Context) {
		status, body, err := client.Get("/{{ .Resource }}/"+c.Param("id"), "")
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.Data(status, "application/fhir+json", body)
	})
{{- end }}
{{- if not (or (.Supports "search-type") (.Supports "read")) }}
	g.Any("", func(c *gin.Context) {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "{{ .Resource }} is not readable on this server"})
	})
{{- end }}
}
`
