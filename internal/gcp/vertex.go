package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

// --- Extraction Model Prompts ---
const ExtractionSystemPrompt = "Ești un extractor de date din documente medicale. Returnează DOAR JSON valid."

const ExtractionUserPrompt = `Extrage următoarele câmpuri din imaginile documentului medical furnizat. Dacă un câmp lipsește, folosește null. Daca anumite cuvinte cheie nu se regasesc, iar in prompt ti se indica sa folosesti anumite valori e.g. ` + "`True` sau `False`" + `, foloseste-le. Nu inventa valori.

- titlu_document
Tipurile de titluri pot fi 'Scrisoare Medicala', 'Bilet de iesire din spital', 'Bilet de iesire', 'Bilet de externare'. Inafara de acestea, exista si alte titluri care pot aparea in document si trebuie extrase.

- nume_prenume_pacient
Va aprea dupa urmatoarele cuvinte cheie: 'Nume si prenume', poate aparea dupa 'Pacientul'. Intotdeauna este un nume scris cu majuscule.

- variabila_booleana_diagnostic_curent
Va returna True daca 'titlu_document' contine urmatoarele cuvinte cheie: 'Scrisoare medicala', 'Bilet de iesire din spital', 'Bilet de iesire', 'Bilet de externare'. Altfel, va returna False.

- variabila_booleana_analize_medicale
Va returna True daca documentul contine urmatoarele cuvinte cheie: 'hemoglobina', 'hematocrit', 'hemoleucograma'. Altfel, va returna False.

- variabila_booleana_examen_hispotatologic
Va returna True daca documentul contine urmatoarele cuvinte cheie: 'histopatologica', 'histopatologic', 'microscopie', 'macroscopie', 'imunohistochimie', 'biopsie', 'biopsic', 'biopsice', 'OncoType', 'examen imunohistochimic', 'IHC', 'EHP'. Altfel, va returna False.

- variabila_booleana_interpretari_ale_imagisticii
Va returna True daca documentul contine urmatoarele cuvinte cheie: 'ecografie', 'explorare ecografica', 'substanta de contrast', 'SC', 'CT', 'rezonanta magnetica', 'computer tomografie', 'computer tomograf', 'PET-CT', 'scintigrafie', 'scintigrafic', 'coronarografie', 'mamografie'. Altfel, va returna False.

- cod_numeric_personal_cod_unic_asigurare_pacient
Codul va aparea dupa urmatoarele cuvinte cheie: 'CNP', 'Cod Numeric Personal' sau 'cod unic de asigurare'.

- data_introducere_document
Poate aparea in urmatorele formate: 'dd.mm.yyyy', 'dd/mm/yyyy', 'dd-mm-yyyy'. Poate aparea dupa urmatoarele cuvinte cheie: 'Data inregistrarii', 'Data emiterii', 'Introdus la data', 'data:' sau alte tipuri de expresii. Daca data include ora si minutul, exclude-le si returneaza doar ziua, luna, anul sub format specific anterior.

- data_rezultat

- diagnostic_pacient
Diagnosticul va aparea dupa cuvintele cheie: 'Diagnostic', 'Diagnosticul', 'Diagnostificat cu'

- sumar_document
Genereaza un rezumat detaliat al documentului prezentand etapele de investigatie, analizele facute de pacient, starea pacientului, tratamentele care trebuie urmate si diagnosticul. Daca unul din termenii anteriori nu se regaseste in document, nu il mentiona. Rezumatul trebuie sa aiba maxim 500 de caractere.`

// VertexClient holds the pre-configured extraction model.
type VertexClient struct {
	ExtractionModel *genai.GenerativeModel
	baseClient      *genai.Client
}

// NewVertexClient creates a client whose extraction model answers with a JSON object.
func NewVertexClient(ctx context.Context, projectID, region, modelName string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}
	if modelName == "" {
		return nil, fmt.Errorf("NewVertexClient: model name cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	extractionModel := baseClient.GenerativeModel(modelName)
	extractionModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(ExtractionSystemPrompt)},
	}
	extractionModel.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}

	return &VertexClient{
		ExtractionModel: extractionModel,
		baseClient:      baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
