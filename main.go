package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	auditx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/audit"
	composex "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/compose"
	consentx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/consent"
	contractx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/contract"
	dispatchx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/dispatch"
	domainx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/domain"
	handlersx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/handlers"
	llmx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/llm"
	registryx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/registry"
	routerx "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/router"
	statex "github.com/nawinto99/Helia-Clinical-Agent-Core/agent/state"
	configx "github.com/nawinto99/Helia-Clinical-Agent-Core/pkg/config"
	geminix "github.com/nawinto99/Helia-Clinical-Agent-Core/pkg/gemini"
	_ "github.com/nawinto99/Helia-Clinical-Agent-Core/pkg/logger/autoload"
	openrouterx "github.com/nawinto99/Helia-Clinical-Agent-Core/pkg/openrouter"
	postgresx "github.com/nawinto99/Helia-Clinical-Agent-Core/pkg/postgres"
	retrievalx "github.com/nawinto99/Helia-Clinical-Agent-Core/retrieval"
)

type AppConfig struct {
	PrincipalID string `envconfig:"PRINCIPAL_ID" split_words:"true" default:"demo-user"`
	Role        string `envconfig:"ROLE" default:"Doctor"`
}

func main() {
	ctx := context.Background()
	appCfg := configx.MustNew[AppConfig]("APP")

	// generation backend; nil generator keeps everything in offline mode
	llmCfg := configx.MustNew[llmx.Config]("LLM")
	var gen contractx.Generator
	if llmCfg.Configured() {
		g, err := openrouterx.NewGenerator(*llmCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("init generator")
		}
		gen = g
	} else {
		log.Warn().Msg("no LLM api key configured, agents run in offline mode")
	}

	// embedding provider; nil embedder puts retrieval in lexical mode
	geminiCfg := configx.MustNew[geminix.Config]("GEMINI")
	embedder, err := geminix.NewEmbedder(ctx, *geminiCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init embedder")
	}

	retrievalCfg := configx.MustNew[retrievalx.Config]("RETRIEVAL")
	var store *retrievalx.Store
	if embedder != nil {
		store, err = retrievalx.New(*retrievalCfg, embedder)
	} else {
		store, err = retrievalx.New(*retrievalCfg, nil)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("init retrieval store")
	}

	// durable personalization state: Upstash when configured, else memory
	var stateStore statex.Store = statex.NewMemoryStore()
	if upstashCfg, err := configx.New[statex.UpstashRedisConfig]("UPSTASH_REDIS"); err == nil {
		if s, err := statex.NewUpstashRedisStore(*upstashCfg); err == nil {
			stateStore = s
		}
	}
	personalization := statex.NewManager(stateStore)

	// consent + audit: Postgres when a DSN is configured
	var (
		consentSource contractx.ConsentSource
		profileSource contractx.ProfileSource
		auditSink     contractx.AuditSink = auditx.NopSink{}
	)
	if pgCfg, err := configx.New[postgresx.Config]("POSTGRES"); err == nil && strings.TrimSpace(pgCfg.DSN) != "" {
		db, err := postgresx.New(ctx, *pgCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("connect postgres")
		}
		defer db.Close()

		pgSink := auditx.NewPostgresSink(db)
		if err := pgSink.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("ensure audit schema")
		}
		auditSink = pgSink

		src := consentx.NewPostgresSource(db)
		consentSource = src
		profileSource = src
	} else {
		static := consentx.NewStaticSource()
		static.SetConsent(appCfg.PrincipalID, contractx.Consent{GDPR: true, DataSharing: false})
		consentSource = static
		profileSource = static
	}

	composer := composex.New(personalization, store, profileSource)

	reg := registryx.New(gen)
	if err := reg.SeedDefaults(); err != nil {
		log.Fatal().Err(err).Msg("seed capability registry")
	}

	deps := handlersx.Deps{Gen: gen, Composer: composer, Retriever: store, Audit: auditSink}
	handlers := []contractx.Handler{
		handlersx.NewNurse(deps),
		handlersx.NewBilling(deps),
		handlersx.NewPharmacy(deps),
		handlersx.NewEmergency(deps),
		handlersx.NewLaboratory(deps),
		handlersx.NewResearcher(deps),
		handlersx.NewDoctor(deps),
	}
	for _, dom := range []string{"Cardiology", "Orthopedics", "Pulmonology", "Endocrinology"} {
		handlers = append(handlers, handlersx.NewSpecialist(dom, deps))
	}

	classifier := domainx.NewClassifier(gen)
	dispatcher, err := dispatchx.New(consentSource, reg, classifier, handlers)
	if err != nil {
		log.Fatal().Err(err).Msg("init dispatcher")
	}
	router := routerx.New(gen, handlers)

	query := strings.TrimSpace(strings.Join(os.Args[1:], " "))
	if query == "" {
		log.Info().Int("handlers", len(handlers)).Msg("agent core ready, no query given")
		return
	}

	decision, err := router.RouteFreeText(ctx, query)
	if err != nil {
		log.Fatal().Err(err).Str("query", query).Msg("route query")
	}

	resp, err := dispatcher.Dispatch(ctx, contractx.DispatchEnvelope{
		Task:    decision.Task,
		Payload: decision.Payload,
		Context: contractx.RequestContext{
			PrincipalID: appCfg.PrincipalID,
			Role:        appCfg.Role,
		},
	})
	if err != nil {
		log.Fatal().Err(err).Str("task", string(decision.Task)).Msg("dispatch")
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("encode response")
	}
	fmt.Println(string(out))
}
