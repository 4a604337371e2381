package fe3

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"text/template"
	"time"

	"github.com/google/uuid"
)

const wsTimeFormat = "2006-01-02T15:04:05.000Z"

// soapAction names the three protocol stages.
const (
	actionGetCookie    = "http://www.microsoft.com/SoftwareDistribution/Server/ClientWebService/GetCookie"
	actionSyncUpdates  = "http://www.microsoft.com/SoftwareDistribution/Server/ClientWebService/SyncUpdates"
	actionExtendedInfo = "http://www.microsoft.com/SoftwareDistribution/Server/ClientWebService/GetExtendedUpdateInfo2"
)

var envelopeTmpl = template.Must(template.New("envelope").Funcs(template.FuncMap{
	"xmlescape": xmlEscape,
}).Parse(`<s:Envelope xmlns:a="http://www.w3.org/2005/08/addressing" xmlns:s="http://www.w3.org/2003/05/soap-envelope">
  <s:Header>
    <a:Action s:mustUnderstand="1">{{.Action}}</a:Action>
    <a:MessageID>urn:uuid:{{.MessageID}}</a:MessageID>
    <a:To s:mustUnderstand="1">{{.Endpoint}}</a:To>
    <o:Security s:mustUnderstand="1" xmlns:o="http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd">
      <Timestamp xmlns="http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-utility-1.0.xsd">
        <Created>{{.Created}}</Created>
        <Expires>{{.Expires}}</Expires>
      </Timestamp>
      <wuws:WindowsUpdateTicketsToken wsu:id="ClientMSA" xmlns:wsu="http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-utility-1.0.xsd" xmlns:wuws="http://schemas.microsoft.com/msus/2014/10/WindowsUpdateAuthorization">
        <TicketType Name="MSA" Version="1.0" Policy="MBI_SSL"/>
      </wuws:WindowsUpdateTicketsToken>
    </o:Security>
  </s:Header>
  <s:Body>
{{.Body}}
  </s:Body>
</s:Envelope>`))

var getCookieBodyTmpl = template.Must(template.New("getCookie").Parse(
	`    <GetCookie xmlns="http://www.microsoft.com/SoftwareDistribution/Server/ClientWebService">
      <oldCookie></oldCookie>
      <lastChange>2015-10-21T17:01:07.1472913Z</lastChange>
      <currentTime>{{.Now}}</currentTime>
      <protocolVersion>1.40</protocolVersion>
    </GetCookie>`))

var syncUpdatesBodyTmpl = template.Must(template.New("syncUpdates").Funcs(template.FuncMap{
	"xmlescape": xmlEscape,
}).Parse(`    <SyncUpdates xmlns="http://www.microsoft.com/SoftwareDistribution/Server/ClientWebService">
      <cookie>
        <Expiration>{{.Cookie.Expiration}}</Expiration>
        <EncryptedData>{{.Cookie.EncryptedData}}</EncryptedData>
      </cookie>
      <parameters>
        <ExpressQuery>false</ExpressQuery>
        <InstalledNonLeafUpdateIDs>
{{- range .InstalledNonLeafUpdateIDs}}
          <int>{{.}}</int>
{{- end}}
        </InstalledNonLeafUpdateIDs>
        <OtherCachedUpdateIDs></OtherCachedUpdateIDs>
        <SkipSoftwareSync>false</SkipSoftwareSync>
        <NeedTwoGroupOutOfScopeUpdates>true</NeedTwoGroupOutOfScopeUpdates>
        <FilterAppCategoryIds>
          <CategoryIdentifier>
            <Id>{{.CategoryID}}</Id>
          </CategoryIdentifier>
        </FilterAppCategoryIds>
        <TreatAppCategoryIdsAsInstalled>true</TreatAppCategoryIdsAsInstalled>
        <AlsoPerformRegularSync>false</AlsoPerformRegularSync>
        <ComputerSpec/>
        <ExtendedUpdateInfoParameters>
          <XmlUpdateFragmentTypes>
            <XmlUpdateFragmentType>Extended</XmlUpdateFragmentType>
            <XmlUpdateFragmentType>LocalizedProperties</XmlUpdateFragmentType>
            <XmlUpdateFragmentType>Eula</XmlUpdateFragmentType>
          </XmlUpdateFragmentTypes>
          <Locales>
            <string>{{.Language}}</string>
            <string>en</string>
          </Locales>
        </ExtendedUpdateInfoParameters>
        <ClientPreferredLanguages/>
        <ProductsParameters>
          <SyncCurrentVersionOnly>false</SyncCurrentVersionOnly>
          <DeviceAttributes>{{xmlescape .DeviceAttributes}}</DeviceAttributes>
          <CallerAttributes>E:Interactive=1&amp;IsSeeker=1&amp;SheddingAware=1;</CallerAttributes>
          <Products/>
        </ProductsParameters>
      </parameters>
    </SyncUpdates>`))

var extendedInfoBodyTmpl = template.Must(template.New("extendedInfo").Funcs(template.FuncMap{
	"xmlescape": xmlEscape,
}).Parse(`    <GetExtendedUpdateInfo2 xmlns="http://www.microsoft.com/SoftwareDistribution/Server/ClientWebService">
      <cookie>
        <Expiration>{{.Cookie.Expiration}}</Expiration>
        <EncryptedData>{{.Cookie.EncryptedData}}</EncryptedData>
      </cookie>
      <updateIDs>
        <UpdateIdentity>
          <UpdateID>{{.UpdateID}}</UpdateID>
          <RevisionNumber>{{.RevisionNumber}}</RevisionNumber>
        </UpdateIdentity>
      </updateIDs>
      <infoTypes>
        <XmlUpdateFragmentType>FileUrl</XmlUpdateFragmentType>
        <XmlUpdateFragmentType>FileDecryption</XmlUpdateFragmentType>
      </infoTypes>
      <deviceAttributes>{{xmlescape .DeviceAttributes}}</deviceAttributes>
    </GetExtendedUpdateInfo2>`))

// installedNonLeafUpdateIDs is the static set of base updates the sync
// request reports as present, so the service answers with leaf app
// packages instead of servicing-stack prerequisites.
var installedNonLeafUpdateIDs = []int{
	1, 2, 3, 11, 19, 544, 549, 2359974, 2359977, 5143990, 5169043, 5169044,
	5169047, 8788830, 8806526, 9125350, 9154769, 10809856, 23110993,
	23110994, 54341900, 54343656, 59830006, 59830007, 59830008, 60484010,
	62450018, 62450019, 62450020, 98959022, 98959023, 98959024, 98959025,
	98959026, 105939029, 105995585, 106017178, 107825194, 117765322,
	129905029, 130040030, 130040031, 130040032, 130040033, 138372035,
	138372036, 139536037, 158941041, 158941042, 158941043, 158941044,
	159776047, 160733048, 160733049, 160733050,
}

func xmlEscape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// buildEnvelope wraps one body in the protocol's addressed, timestamped
// SOAP envelope.
func buildEnvelope(action, endpoint, body string, now time.Time) (string, error) {
	var buf bytes.Buffer
	err := envelopeTmpl.Execute(&buf, struct {
		Action, MessageID, Endpoint, Created, Expires, Body string
	}{
		Action:    action,
		MessageID: uuid.NewString(),
		Endpoint:  endpoint,
		Created:   now.UTC().Format(wsTimeFormat),
		Expires:   now.UTC().Add(5 * time.Minute).Format(wsTimeFormat),
		Body:      body,
	})
	if err != nil {
		return "", fmt.Errorf("building envelope: %w", err)
	}
	return buf.String(), nil
}

// deviceAttributes renders the OS descriptor as the attribute string the
// sync service expects.
func deviceAttributes(osd OSDescriptor) string {
	v := osd.OSVersion.String()
	return fmt.Sprintf("E:BranchReadinessLevel=CB"+
		"&CurrentBranch=%s"+
		"&FlightRing=%s"+
		"&FlightingBranchName=%s"+
		"&AttrDataVer=177"+
		"&InstallLanguage=%s"+
		"&OSUILocale=%s"+
		"&InstallationType=Client"+
		"&App=WU_STORE"+
		"&OSVersion=%s"+
		"&DeviceFamily=%s"+
		"&OSArchitecture=AMD64"+
		"&ProcessorArchitecture=AMD64"+
		"&OSSkuId=48"+
		"&UpdateManagementGroup=2"+
		"&IsFlightingEnabled=%d"+
		"&TelemetryLevel=1"+
		"&DefaultUserRegion=%s"+
		"&WuClientVer=%s",
		osd.Branch, osd.FlightRing, osd.FlightingBranchName,
		osd.Language, osd.Language, v, osd.Family,
		flightingEnabled(osd), osd.Market, v)
}

func flightingEnabled(osd OSDescriptor) int {
	if osd.FlightRing != "" && osd.FlightRing != "Retail" {
		return 1
	}
	return 0
}
